package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tradewind-labs/tradedesk-backend/pkg/migrate"
)

func TestTradingMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_trading.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no trading migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE trade_stage AS ENUM ('draft', 'submitted', 'approved', 'cancelled', 'closed')",
		"CREATE TABLE trades",
		"trade_stage trade_stage NOT NULL DEFAULT 'draft'",
		"CREATE UNIQUE INDEX idx_trades_trade_number ON trades (trade_number)",
		"DROP TABLE trades",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir should validate: %v", err)
	}
}
