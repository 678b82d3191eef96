package generator

// Config drives the synthetic tracking data generator.
type Config struct {
	NumUsers     int
	MinItems     int
	MaxItems     int
	DropChance   float64
	ResolvedRate float64
	Seed         int64
}

// DefaultConfig returns baseline settings for demo datasets.
func DefaultConfig() Config {
	return Config{
		NumUsers:     25,
		MinItems:     1,
		MaxItems:     4,
		DropChance:   0.3,
		ResolvedRate: 0.8,
		Seed:         42,
	}
}
