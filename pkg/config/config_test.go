package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Search.MaxResults != 20 {
		t.Errorf("max results = %d, want 20", cfg.Search.MaxResults)
	}
	if cfg.Index.ArtifactDir != "data_store" || cfg.Index.KeepVersions != 2 {
		t.Errorf("index config = %+v", cfg.Index)
	}
	if cfg.Kafka.Topics.RebuildComplete != "index.rebuild.completed" {
		t.Errorf("rebuild topic = %q", cfg.Kafka.Topics.RebuildComplete)
	}
	if cfg.Redis.CacheTTL != 60*time.Second {
		t.Errorf("cache ttl = %v, want 60s", cfg.Redis.CacheTTL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9999
search:
  maxResults: 5
index:
  artifactDir: /var/lib/postsearch
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("max results = %d, want 5", cfg.Search.MaxResults)
	}
	if cfg.Index.ArtifactDir != "/var/lib/postsearch" {
		t.Errorf("artifact dir = %q", cfg.Index.ArtifactDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
	// Unspecified fields keep their defaults.
	if cfg.Postgres.Host != "localhost" {
		t.Errorf("postgres host = %q, want localhost", cfg.Postgres.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PS_POSTGRES_HOST", "db.internal")
	t.Setenv("PS_SEARCH_MAX_RESULTS", "7")
	t.Setenv("PS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("postgres host = %q, want db.internal", cfg.Postgres.Host)
	}
	if cfg.Search.MaxResults != 7 {
		t.Errorf("max results = %d, want 7", cfg.Search.MaxResults)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "localhost", Port: 5432,
		Database: "postsearch", User: "app", Password: "secret",
		SSLMode: "disable",
	}
	want := "host=localhost port=5432 user=app password=secret dbname=postsearch sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
