package backend

import (
	"context"
	"path/filepath"
	"testing"

	"debtbook/internal/config"
	"debtbook/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "x.db",
		AMQPURL:      "amqp://localhost/",
		AMQPExchange: "debtbook",
		AMQPQueue:    "mirror_entries",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || !cfg.Publish || cfg.AMQPQueue != "mirror_entries" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"publish without url", Config{Type: MemoryBackend, Publish: true}, true},
		{"unknown type", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer func() {
				if err := res.Cleanup(); err != nil {
					t.Errorf("Cleanup: %v", err)
				}
			}()

			id, err := res.Ledger.RecordCustomer(ctx, core.Customer{
				FirstName: "Ayse", LastName: "Kaya", RegistrationDate: core.NewDate(2024, 3, 1),
			})
			if err != nil {
				t.Fatalf("RecordCustomer: %v", err)
			}
			c, err := res.Backend.GetCustomer(ctx, id)
			if err != nil || c.FirstName != "Ayse" {
				t.Fatalf("GetCustomer = %+v, %v", c, err)
			}
		})
	}
}
