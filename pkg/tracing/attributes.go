package tracing

// Attribute keys for pipeline operations
const (
	// Sync cycle attributes
	AttrSyncCategory  = "sync.category"
	AttrSyncElements  = "sync.elements"
	AttrSyncFeatures  = "sync.features"
	AttrSyncPlaces    = "sync.places"
	AttrSyncInserted  = "sync.inserted"
	AttrSyncUpdated   = "sync.updated"
	AttrSyncUnchanged = "sync.unchanged"
	AttrSyncErrors    = "sync.errors"

	// External service attributes
	AttrServiceName      = "poi.service.name"
	AttrServiceOperation = "poi.service.operation"
	AttrServiceURL       = "poi.service.url"

	// Cache attributes
	AttrCacheType = "poi.cache.type"
	AttrCacheHit  = "poi.cache.hit"

	// Storage attributes
	AttrStoreDatabase   = "poi.store.database"
	AttrStoreCollection = "poi.store.collection"
	AttrStoreBatchSize  = "poi.store.batch_size"

	// HTTP attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Service names
const (
	ServiceOverpass = "overpass"
	ServiceMongo    = "mongodb"
)
