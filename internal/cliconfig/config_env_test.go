package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"MONGOSHIP_DATABASE":           "logs",
				"MONGOSHIP_COLLECTION":         "events",
				"MONGOSHIP_PORT":               "27018",
				"MONGOSHIP_CAPPED":             "true",
				"MONGOSHIP_CAPPED_SIZE":        "100m",
				"MONGOSHIP_CAPPED_MAX":         "1000",
				"MONGOSHIP_FLUSH_INTERVAL":     "10s",
				"MONGOSHIP_FLUSH_THREAD_COUNT": "4",
				"MONGOSHIP_INCLUDE_TIME_KEY":   "false",
			},
			changed: map[string]bool{},
			initial: Config{IncludeTimeKey: true},
			expected: Config{
				Database:         "logs",
				Collection:       "events",
				Port:             27018,
				Capped:           true,
				CappedSize:       "100m",
				CappedMax:        1000,
				FlushInterval:    10 * time.Second,
				FlushThreadCount: 4,
				IncludeTimeKey:   false,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"MONGOSHIP_DATABASE":   "env-db",
				"MONGOSHIP_COLLECTION": "env-coll",
			},
			changed: map[string]bool{"database": true},
			initial: Config{Database: "flag-db"},
			expected: Config{
				Database:   "flag-db",
				Collection: "env-coll",
			},
		},
		{
			name:     "returns error for invalid duration",
			envVars:  map[string]string{"MONGOSHIP_FLUSH_INTERVAL": "not-a-duration"},
			changed:  map[string]bool{},
			wantErr:  true,
			expected: Config{},
		},
		{
			name:     "returns error for invalid int",
			envVars:  map[string]string{"MONGOSHIP_PORT": "not-a-number"},
			changed:  map[string]bool{},
			wantErr:  true,
			expected: Config{},
		},
		{
			name:     "returns error for invalid capped max",
			envVars:  map[string]string{"MONGOSHIP_CAPPED_MAX": "many"},
			changed:  map[string]bool{},
			wantErr:  true,
			expected: Config{},
		},
		{
			name:     "bool accepts 1",
			envVars:  map[string]string{"MONGOSHIP_ONCE": "1"},
			changed:  map[string]bool{},
			expected: Config{Once: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestConfigPrecedence(t *testing.T) {
	// CLI > Env > File > Default
	cfg := DefaultConfig()
	changed := map[string]bool{"collection": true}
	cfg.Collection = "from-flag"

	fc := FileConfig{
		Database:   "file-db",
		Collection: "file-coll",
		Host:       "file-host",
		TagKey:     "file-tag",
	}
	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	t.Setenv("MONGOSHIP_HOST", "env-host")
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig() error = %v", err)
	}

	if cfg.Collection != "from-flag" {
		t.Errorf("Collection = %q, want from-flag", cfg.Collection)
	}
	if cfg.Host != "env-host" {
		t.Errorf("Host = %q, want env-host", cfg.Host)
	}
	if cfg.Database != "file-db" {
		t.Errorf("Database = %q, want file-db", cfg.Database)
	}
	if cfg.TagKey != "file-tag" {
		t.Errorf("TagKey = %q, want file-tag", cfg.TagKey)
	}
	if cfg.Port != 27017 {
		t.Errorf("Port = %d, want default 27017", cfg.Port)
	}
}
