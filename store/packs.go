// Package store keeps one sticker pack id per sender so every sticker a user
// makes is grouped into the same pack on their phone.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deven96/stickermeta/metadata"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS sticker_packs (
	sender      TEXT PRIMARY KEY,
	pack_id     TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	sticker_count INTEGER NOT NULL DEFAULT 0
)`

// Pack is the stored pack of a sender
type Pack struct {
	Sender       string
	PackID       string
	CreatedAt    time.Time
	StickerCount int
}

// Packs is a SQLite backed registry of sticker packs
type Packs struct {
	db *sql.DB
}

// Open creates the database at path if needed. ":memory:" is accepted for tests.
func Open(path string) (*Packs, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return nil, fmt.Errorf("create pack store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open pack store: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init pack store: %w", err)
	}
	return &Packs{db: db}, nil
}

func (p *Packs) Close() error {
	return p.db.Close()
}

// Lookup returns the pack stored for sender.
func (p *Packs) Lookup(ctx context.Context, sender string) (Pack, bool, error) {
	var pack Pack
	var created int64
	err := p.db.QueryRowContext(ctx,
		`SELECT sender, pack_id, created_at, sticker_count FROM sticker_packs WHERE sender = ?`, sender,
	).Scan(&pack.Sender, &pack.PackID, &created, &pack.StickerCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Pack{}, false, nil
	}
	if err != nil {
		return Pack{}, false, fmt.Errorf("lookup pack for %s: %w", sender, err)
	}
	pack.CreatedAt = time.Unix(created, 0)
	return pack, true, nil
}

// PackID returns the pack id for sender, creating one on first use, and
// counts the sticker against the pack. An empty sender always gets a fresh id.
func (p *Packs) PackID(ctx context.Context, sender string) (string, error) {
	if sender == "" {
		return metadata.NewPackID()
	}
	fresh, err := metadata.NewPackID()
	if err != nil {
		return "", err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO sticker_packs (sender, pack_id, created_at, sticker_count) VALUES (?, ?, ?, 1)
		ON CONFLICT(sender) DO UPDATE SET sticker_count = sticker_count + 1`,
		sender, fresh, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("save pack for %s: %w", sender, err)
	}
	pack, ok, err := p.Lookup(ctx, sender)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("pack for %s vanished after insert", sender)
	}
	log.Debugf("sender %s uses pack %s (%d stickers)", sender, pack.PackID, pack.StickerCount)
	return pack.PackID, nil
}
