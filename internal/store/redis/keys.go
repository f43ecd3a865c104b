package redis

const (
	// KeyPrefixGeo is the prefix for cached geo labels
	KeyPrefixGeo = "visitrelay:geo:"
)

// GeoKey returns the Redis key for a cached geo label
func GeoKey(address string) string {
	return KeyPrefixGeo + address
}
