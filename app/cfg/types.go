package cfg

type Cfg struct {
	// Store configuration
	StoreURL   string
	StoreKey   string
	StoreTable string

	// Downstream collaborators
	EnrichURL   string
	NatsURL     string
	NatsSubject string

	// Extraction/automation services
	ApifyToken string
	ExtractURL string
	ExtractKey string

	// Application configuration
	PortalsFile       string
	StateDBPath       string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	HTTPTimeout       int
	PollInterval      int
	PollDeadline      int
	SeenCacheSize     int
	APIAccessKey      string
	Once              bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
