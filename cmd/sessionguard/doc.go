// Command sessionguard serves HTTP traffic through the session guard and
// administers client reputation.
//
//	sessionguard serve --store pg --locker redis --upstream http://localhost:3000
//	sessionguard migrate --store pg
//	sessionguard blacklist 203.0.113.7 --store pg
//	sessionguard status 203.0.113.7 --store pg --json
//	sessionguard unblock 203.0.113.7 --store pg
//
// Backends are selected with --store (memory, mongo, pg) and --locker
// (local, redis), defaulting to SESSIONGUARD_STORE and SESSIONGUARD_LOCKER.
// Everything else is read from the environment (GUARD_*, SERVER_*,
// MONGODB_*, PG_*, REDIS_*, NATS_URL), with a .env file loaded if present.
package main
