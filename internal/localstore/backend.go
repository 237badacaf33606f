package localstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/content"
	"github.com/pders01/reviewq/internal/debuglog"
)

// MemoryPath opens a throwaway workspace that is removed on Close.
const MemoryPath = ":memory:"

// Backend answers search and retire requests from a local workspace.
type Backend struct {
	store   *Store
	index   *Index
	tempDir string
}

// Open opens the workspace described by cfg, reindexing when the index is
// empty but the store is not.
func Open(cfg config.LocalConfig) (*Backend, error) {
	dbPath, indexPath := cfg.Path, cfg.SearchIndex

	var tempDir string
	if dbPath == MemoryPath {
		dir, err := os.MkdirTemp("", "reviewq-workspace-*")
		if err != nil {
			return nil, fmt.Errorf("creating temporary workspace: %w", err)
		}
		tempDir = dir
		dbPath = filepath.Join(dir, "workspace.db")
		indexPath = ""
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace directory: %w", err)
	}

	store, err := NewStore(dbPath, cfg.Timeout)
	if err != nil {
		cleanupTemp(tempDir)
		return nil, err
	}

	index, err := NewIndex(indexPath)
	if err != nil {
		store.Close()
		cleanupTemp(tempDir)
		return nil, err
	}

	b := &Backend{store: store, index: index, tempDir: tempDir}
	if err := b.reindexIfEmpty(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func cleanupTemp(dir string) {
	if dir != "" {
		os.RemoveAll(dir)
	}
}

func (b *Backend) reindexIfEmpty() error {
	count, err := b.index.DocCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	records, err := b.store.AllItems()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	debuglog.Infof("Reindexing %d workspace items", len(records))
	return b.index.IndexRecords(records)
}

// SeededAt reports when the workspace was last loaded. The zero time means never.
func (b *Backend) SeededAt() (time.Time, error) {
	return b.store.SeededAt()
}

func (b *Backend) Close() error {
	indexErr := b.index.Close()
	storeErr := b.store.Close()
	cleanupTemp(b.tempDir)
	if storeErr != nil {
		return storeErr
	}
	return indexErr
}

// Seed loads both collections of a search result into the workspace.
func (b *Backend) Seed(resp *content.SearchResponse) (int, error) {
	if resp == nil {
		return 0, nil
	}

	var records []Record
	for _, item := range resp.Content {
		records = append(records, Record{Kind: KindContent, Item: item})
	}
	for _, item := range resp.QuestionSet {
		records = append(records, Record{Kind: KindQuestionSet, Item: item})
	}

	if err := b.store.SaveItems(KindContent, resp.Content); err != nil {
		return 0, fmt.Errorf("saving content: %w", err)
	}
	if err := b.store.SaveItems(KindQuestionSet, resp.QuestionSet); err != nil {
		return 0, fmt.Errorf("saving question sets: %w", err)
	}
	if err := b.index.IndexRecords(records); err != nil {
		return 0, err
	}

	return len(records), nil
}

// Search filters, sorts and pages the workspace the way the remote service does.
func (b *Backend) Search(ctx context.Context, sr content.SearchRequest) (*content.SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := b.store.AllItems()
	if err != nil {
		return nil, fmt.Errorf("listing workspace: %w", err)
	}

	var hits map[string]float64
	if strings.TrimSpace(sr.Query) != "" {
		hits, err = b.index.Match(sr.Query)
		if err != nil {
			return nil, err
		}
	}

	matched := records[:0]
	for _, rec := range records {
		if len(sr.Statuses) > 0 && !slices.Contains(sr.Statuses, rec.Item.Status) {
			continue
		}
		if len(sr.Categories) > 0 && !slices.Contains(sr.Categories, rec.Item.PrimaryCategory) {
			continue
		}
		if hits != nil {
			if _, ok := hits[rec.Item.Identifier]; !ok {
				continue
			}
		}
		matched = append(matched, rec)
	}

	sortRecords(matched, sr.Sort.Order)

	resp := &content.SearchResponse{Count: len(matched)}
	for _, rec := range page(matched, sr.Offset, sr.Limit) {
		if rec.Kind == KindQuestionSet {
			resp.QuestionSet = append(resp.QuestionSet, rec.Item)
		} else {
			resp.Content = append(resp.Content, rec.Item)
		}
	}
	return resp, nil
}

// sortRecords orders by last update, falling back to identifier for ties and
// unparseable timestamps.
func sortRecords(records []Record, order content.Order) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, _ := content.ParseTimestamp(records[i].Item.LastUpdatedOn)
		tj, _ := content.ParseTimestamp(records[j].Item.LastUpdatedOn)
		if ti.Equal(tj) {
			return records[i].Item.Identifier < records[j].Item.Identifier
		}
		if order == content.OrderAsc {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
}

func page(records []Record, offset, limit int) []Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return nil
	}
	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return records[offset:end]
}

// Retire moves an item out of the review workflow.
func (b *Backend) Retire(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec, err := b.store.GetItem(identifier)
	if err != nil {
		return fmt.Errorf("retiring %s: %w", identifier, err)
	}
	if rec.Item.Status == StatusRetired {
		return fmt.Errorf("retiring %s: %w", identifier, ErrNotFound)
	}

	if err := b.store.SetStatus(identifier, StatusRetired); err != nil {
		return fmt.Errorf("retiring %s: %w", identifier, err)
	}
	if err := b.index.Remove(identifier); err != nil {
		debuglog.Warnf("Failed to drop %s from index: %v", identifier, err)
	}
	return nil
}
