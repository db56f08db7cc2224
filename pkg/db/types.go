package db

type DBConfig struct {
	URI              string
	DBNamePrefix     string
	Timeout          int
	NoCursorTimeout  bool
	MaxPoolSize      uint64
	IdleConnTimeout  int
	RunIndexCreation bool
	UseTransactions  bool
}

type DBConfigYaml struct {
	ConnectionStr      string `yaml:"connection_str" env:"DB_CONNECTION_STR"`
	Username           string `yaml:"username" env:"DB_USERNAME"`
	Password           string `yaml:"password" env:"DB_PASSWORD"`
	ConnectionPrefix   string `yaml:"connection_prefix" env:"DB_CONNECTION_PREFIX"`
	Timeout            int    `yaml:"timeout"`
	IdleConnTimeout    int    `yaml:"idle_conn_timeout"`
	MaxPoolSize        int    `yaml:"max_pool_size"`
	UseNoCursorTimeout bool   `yaml:"use_no_cursor_timeout"`
	DBNamePrefix       string `yaml:"db_name_prefix" env:"DB_NAME_PREFIX"`
	RunIndexCreation   bool   `yaml:"run_index_creation"`
	UseTransactions    bool   `yaml:"use_transactions" env:"DB_USE_TRANSACTIONS"`
}
