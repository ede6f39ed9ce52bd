package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
)

var channelName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidChannel reports whether name can be used as a NOTIFY channel
// without quoting.
func ValidChannel(name string) bool {
	return channelName.MatchString(name)
}

// MigrationStatements returns the DDL that creates the candidates table and
// its change trigger publishing on channel.
func MigrationStatements(channel string) ([]string, error) {
	if !ValidChannel(channel) {
		return nil, fmt.Errorf("invalid notify channel %q", channel)
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			id               uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id          text NOT NULL DEFAULT '',
			full_name        text NOT NULL,
			applied_position text NOT NULL,
			status           text NOT NULL DEFAULT 'New'
			                 CHECK (status IN ('New', 'Interviewing', 'Hired', 'Rejected')),
			resume_url       text NOT NULL DEFAULT '',
			created_at       timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS candidates_created_at_idx ON candidates (created_at DESC)`,
		`CREATE OR REPLACE FUNCTION notify_candidate_change() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify(TG_ARGV[0], jsonb_build_object(
				'type', TG_OP,
				'schema', TG_TABLE_SCHEMA,
				'table', TG_TABLE_NAME,
				'record', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE to_jsonb(NEW) END,
				'old_record', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE to_jsonb(OLD) END
			)::text);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS candidates_notify ON candidates`,
		fmt.Sprintf(`CREATE TRIGGER candidates_notify
			AFTER INSERT OR UPDATE OR DELETE ON candidates
			FOR EACH ROW EXECUTE FUNCTION notify_candidate_change('%s')`, channel),
	}, nil
}

// Migrate applies the schema in a single transaction.
func (s *Store) Migrate(ctx context.Context, channel string) error {
	stmts, err := MigrationStatements(channel)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for i, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	s.logger.Info("schema migrated", "notify_channel", channel)
	return nil
}
