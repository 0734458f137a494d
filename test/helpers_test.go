package test

import (
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"bindrop/cfg"
	"bindrop/svc/api"
	"bindrop/svc/db"
	"bindrop/svc/svc"
	"bindrop/svc/util"
)

const testURLPrefix = "http://paste.test/"

var envLoadOnce sync.Once

func loadTestEnv() {
	envLoadOnce.Do(func() {
		for _, p := range []string{".env.test", "../.env.test"} {
			if _, err := os.Stat(p); err == nil {
				_ = godotenv.Load(p)
				return
			}
		}
	})
}

func testConfig() *cfg.Cfg {
	loadTestEnv()
	util.InitLog("error", false)
	return &cfg.Cfg{
		Port:            "0",
		Environment:     "test",
		LogLevel:        "error",
		Backend:         cfg.BackendMemory,
		URLPrefix:       testURLPrefix,
		DefaultTTL:      time.Hour,
		MaxPasteSize:    1024 * 1024,
		ContextTimeout:  30 * time.Second,
		CleanerInterval: 10 * time.Minute,
	}
}

// setupServer builds a full HTTP stack over the in-memory backend and
// returns the running test server plus the backing store for assertions.
func setupServer(t *testing.T, c *cfg.Cfg) (*httptest.Server, *db.Memory) {
	t.Helper()
	if c == nil {
		c = testConfig()
	}
	store := db.NewMemory(c.MaxPasteSize)
	templates, err := api.LoadTemplates(c.TemplateDir)
	if err != nil {
		t.Fatal(err)
	}
	pasteSvc := svc.NewPaste(store, c.DefaultTTL)
	server := api.NewServer(c, pasteSvc, templates, store)
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return ts, store
}
