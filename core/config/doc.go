// Package config fills env-tagged structs from the process environment.
//
// A .env file in the working directory is read once, before the first load,
// and never overrides variables that are already set. Parsing is done by
// caarlos0/env, so `env`, `envDefault` and `required` tags apply as usual.
//
// Results are memoized per struct type: the guard, server and store configs
// are each parsed once no matter how many callers ask for them.
//
//	var cfg guard.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// MustLoad panics instead of returning the error and suits main packages.
package config
