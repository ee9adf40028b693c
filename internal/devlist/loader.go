package devlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/logger"
	"github.com/stepamak/pump-tracker/internal/storage"
)

// Loader builds Sets snapshots from list files and an optional store.
type Loader struct {
	files *FileStore
	store storage.DevListStore
	log   *zap.Logger
}

// NewLoader creates a loader. store may be nil.
func NewLoader(files *FileStore, store storage.DevListStore, log *zap.Logger) *Loader {
	if log == nil {
		log = logger.Named("devlist")
	}
	return &Loader{files: files, store: store, log: log}
}

// Load reads the enabled lists. Disabled lists are left empty. Errors from
// individual sources are aggregated; the returned Sets always holds every
// entry that could be read.
func (l *Loader) Load(ctx context.Context, useAllow, useDeny bool) (*Sets, error) {
	var (
		allow, deny []string
		errs        *multierror.Error
	)
	if useAllow {
		entries, err := l.read(ctx, domain.ListAllow)
		errs = multierror.Append(errs, err)
		allow = entries
	}
	if useDeny {
		entries, err := l.read(ctx, domain.ListDeny)
		errs = multierror.Append(errs, err)
		deny = entries
	}

	sets := NewSets(allow, deny)
	l.log.Info("dev lists loaded",
		zap.Int("allow", sets.AllowLen()),
		zap.Int("deny", sets.DenyLen()),
		zap.Strings("dirs", l.files.Dirs()),
	)
	return sets, errs.ErrorOrNil()
}

func (l *Loader) read(ctx context.Context, kind domain.ListKind) ([]string, error) {
	var errs *multierror.Error

	entries, err := l.files.Read(kind)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%s list files: %w", kind, err))
	}

	if l.store != nil {
		stored, err := l.store.List(ctx, kind)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s list store: %w", kind, err))
		}
		for _, e := range stored {
			entries = append(entries, e.Address)
		}
	}

	for _, e := range entries {
		if !ValidAddress(e) {
			l.log.Warn("dev list entry is not a valid address",
				zap.Stringer("kind", kind), logger.FieldDev(e))
		}
	}
	return entries, errs.ErrorOrNil()
}

// Add records address on kind's list: in the file store always, and in the
// database store when one is configured.
func (l *Loader) Add(ctx context.Context, kind domain.ListKind, address, note string, addedAt int64) (string, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown list kind %q", kind)
	}
	if !ValidAddress(address) {
		l.log.Warn("adding dev that is not a valid address", logger.FieldDev(address))
	}

	path, added, err := l.files.Add(kind, address)
	if err != nil {
		return "", err
	}
	l.log.Info("dev list updated", zap.Stringer("kind", kind), logger.FieldDev(address),
		zap.String("path", path), zap.Bool("added", added))

	if l.store != nil {
		err := l.store.Add(ctx, &domain.DevListEntry{Kind: kind, Address: address, Note: note, AddedAt: addedAt})
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return path, fmt.Errorf("store dev list entry: %w", err)
		}
	}
	return path, nil
}
