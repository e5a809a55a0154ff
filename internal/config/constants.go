package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./serialist.db"

	// DefaultHoldingPath is the route the maintenance holding page is served from
	DefaultHoldingPath = "/coming-soon"
)
