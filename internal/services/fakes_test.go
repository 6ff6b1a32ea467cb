package services

import (
	"context"
	"sync"

	"github.com/markdave123-py/doctrinekb/internal/core"
	"github.com/markdave123-py/doctrinekb/internal/models"
)

var _ core.ChunkStore = (*fakeStore)(nil)

type fakeStore struct {
	mu        sync.Mutex
	doctrines []models.Doctrine
	listCalls int
	listErr   error
	personnel []models.PersonnelRecord
}

func (f *fakeStore) InsertChunks(context.Context, []models.DoctrineChunk) (*models.WriteReport, error) {
	return &models.WriteReport{}, nil
}

func (f *fakeStore) CountChunks(_ context.Context, country, warfareType string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.doctrines {
		if d.Country == country && d.WarfareType == warfareType {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListDoctrines(context.Context) ([]models.Doctrine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Doctrine{}, f.doctrines...), nil
}

func (f *fakeStore) InsertPersonnel(_ context.Context, records []models.PersonnelRecord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := 0
	for _, r := range records {
		dup := false
		for _, p := range f.personnel {
			if p.Country == r.Country {
				dup = true
				break
			}
		}
		if !dup {
			f.personnel = append(f.personnel, r)
			inserted++
		}
	}
	return inserted, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeKB struct {
	questions []string
	answer    string
	err       error
	hits      []models.SearchHit
	country   string
}

func (f *fakeKB) Ask(_ context.Context, question string) (string, error) {
	f.questions = append(f.questions, question)
	return f.answer, f.err
}

func (f *fakeKB) Search(_ context.Context, question, country string, limit int) ([]models.SearchHit, error) {
	f.questions = append(f.questions, question)
	f.country = country
	return f.hits, f.err
}
