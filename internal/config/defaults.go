package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 60
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/partsearch/data/db/catalog.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/partsearch/data/indices/bleve"
	}
	if cfg.Search.DefaultPageSize == 0 {
		cfg.Search.DefaultPageSize = 20
	}
	if cfg.Search.VocabularyLimit == 0 {
		cfg.Search.VocabularyLimit = 500
	}
	if cfg.Search.VocabularyTTLSeconds == 0 {
		cfg.Search.VocabularyTTLSeconds = 60
	}
	if cfg.Search.CacheMaxAgeSeconds == 0 {
		cfg.Search.CacheMaxAgeSeconds = 300
	}
	if cfg.Search.SynonymMinWeight == 0 {
		cfg.Search.SynonymMinWeight = 0.8
	}
	if cfg.Search.FuzzyMaxDistance == 0 {
		cfg.Search.FuzzyMaxDistance = 2
	}
	cfg.Ranking.ApplyDefaults()
	cfg.Recommend.ApplyDefaults()
	if cfg.Analytics.Sink == "" {
		cfg.Analytics.Sink = SinkSQLite
	}
	if cfg.Analytics.TimeoutMs == 0 {
		cfg.Analytics.TimeoutMs = 2000
	}
	if cfg.Analytics.BreakerFailureThreshold == 0 {
		cfg.Analytics.BreakerFailureThreshold = 5
	}
	if cfg.Analytics.BreakerOpenSeconds == 0 {
		cfg.Analytics.BreakerOpenSeconds = 30
	}
}
