// Package mongo connects to MongoDB with retry and stores traffic in it.
//
// New and NewWithDatabase retry the initial connection to ride out Atlas cold
// starts (5-8 seconds) and brief network interruptions, and verify the result
// with a ping before returning.
//
// Store implements traffic.Store on two collections: clientips holds one
// reputation entry per client identity and httplogs holds one document per
// completed request. Record ids are ObjectID hex strings and an unassigned
// record carries a null sessionID, which is what the conditional session
// assignment filters on.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "")
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(ctx)
//
//	store := mongo.NewStore(db)
//	if err := store.EnsureIndexes(ctx); err != nil {
//		return err
//	}
//
// # Configuration
//
//	MONGODB_URL                 (required)
//	MONGODB_DATABASE            (default: sessionguard)
//	MONGODB_CONNECT_TIMEOUT     (default: 10s)
//	MONGODB_MAX_POOL_SIZE       (default: 100)
//	MONGODB_MIN_POOL_SIZE       (default: 1)
//	MONGODB_MAX_CONN_IDLE_TIME  (default: 300s)
//	MONGODB_RETRY_WRITES        (default: true)
//	MONGODB_RETRY_READS         (default: true)
//	MONGODB_RETRY_ATTEMPTS      (default: 3)
//	MONGODB_RETRY_INTERVAL      (default: 5s)
//
// # Error Handling
//
//	ErrFailedToConnectToMongo - all connection attempts failed
//	ErrHealthcheckFailed      - the health check ping failed
//
// Store methods return traffic.ErrNotFound for missing documents and wrap
// network failures with traffic.ErrStoreUnavailable.
package mongo
