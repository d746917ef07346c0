// Package clientip derives the client identity used as the key for reputation
// and session tracking.
//
// # Precedence
//
// Sources are consulted in this order and the first non-empty one wins:
//  1. A custom header configured with WithCustomHeader
//  2. X-Client-IP
//  3. X-Forwarded-For
//  4. CF-Connecting-IP (Cloudflare)
//  5. Fastly-Client-IP (Fastly)
//  6. True-Client-IP (Akamai, Cloudflare Enterprise)
//  7. X-Real-IP (nginx)
//  8. X-Cluster-Client-IP
//  9. X-Forwarded
//  10. Forwarded-For
//  11. RemoteAddr, with the port removed
//  12. A platform accessor registered with WithSourceIP
//
// # Usage
//
//	extract := clientip.New(clientip.WithCustomHeader("X-Edge-Client"))
//	id := extract(r)
//
// # Limitations
//
// Values are not validated or normalized. A header carrying a list
// ("client, proxy1") is used verbatim, and the same host written as IPv4 and
// as IPv4-mapped IPv6 yields two identities. Normalize upstream when identity
// stability across representations matters.
//
// When no source is available the identity is "". Callers treat it as a single
// shared "unknown client" bucket: all such requests share one reputation entry
// and one session stream.
package clientip
