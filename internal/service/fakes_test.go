package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/export"
	"github.com/helixir/labmanager-service/internal/names"
	"github.com/helixir/labmanager-service/internal/repository"
)

// memStore is an in-memory store behind the fake repositories. calls counts
// every repository method invocation; failOn makes the named method fail.
type memStore struct {
	persons     map[int]*domain.Person
	pubs        map[int]*domain.Publication
	authorships []domain.Authorship

	nextPerson, nextPub, nextAuthorship int

	calls  int
	failOn string
}

var errStore = errors.New("store failure")

func newMemStore() *memStore {
	return &memStore{
		persons:        map[int]*domain.Person{},
		pubs:           map[int]*domain.Publication{},
		nextPerson:     1,
		nextPub:        1,
		nextAuthorship: 1,
	}
}

func (s *memStore) hit(method string) error {
	s.calls++
	if s.failOn == method {
		return errStore
	}
	return nil
}

// addPerson stores a person under a fixed id.
func (s *memStore) addPerson(id int, first, last string) *domain.Person {
	p := &domain.Person{ID: id, FirstName: first, LastName: last}
	s.persons[id] = p
	if id >= s.nextPerson {
		s.nextPerson = id + 1
	}
	return p
}

func (s *memStore) addPublication(id int, title string, authorIDs ...int) *domain.Publication {
	pub := &domain.Publication{ID: id, Title: title, Type: domain.PublicationTypeArticle}
	s.pubs[id] = pub
	if id >= s.nextPub {
		s.nextPub = id + 1
	}
	for i, pid := range authorIDs {
		s.authorships = append(s.authorships, domain.Authorship{
			ID: s.nextAuthorship, PersonID: pid, PublicationID: id, Rank: i + 1,
		})
		s.nextAuthorship++
	}
	return pub
}

// ranks returns person id -> rank for one publication.
func (s *memStore) ranks(pubID int) map[int]int {
	out := map[int]int{}
	for _, a := range s.authorships {
		if a.PublicationID == pubID {
			out[a.PersonID] = a.Rank
		}
	}
	return out
}

func (s *memStore) snapshot() *memStore {
	c := *s
	c.persons = make(map[int]*domain.Person, len(s.persons))
	for k, v := range s.persons {
		p := *v
		c.persons[k] = &p
	}
	c.pubs = make(map[int]*domain.Publication, len(s.pubs))
	for k, v := range s.pubs {
		p := *v
		c.pubs[k] = &p
	}
	c.authorships = append([]domain.Authorship(nil), s.authorships...)
	return &c
}

func (s *memStore) repos() repository.Repositories {
	return repository.Repositories{
		Persons:      memPersons{s},
		Publications: memPublications{s},
		Authorships:  memAuthorships{s},
	}
}

type memPersons struct{ s *memStore }

func (r memPersons) Create(_ context.Context, p *domain.Person) error {
	if err := r.s.hit("Persons.Create"); err != nil {
		return err
	}
	if p.LastName == "" {
		return domain.NewValidationError("last_name", "last name is required")
	}
	p.ID = r.s.nextPerson
	r.s.nextPerson++
	p.CreatedAt = time.Now()
	stored := *p
	r.s.persons[p.ID] = &stored
	return nil
}

func (r memPersons) GetByID(_ context.Context, id int) (*domain.Person, error) {
	if err := r.s.hit("Persons.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.persons[id]
	if !ok {
		return nil, domain.NewNotFoundError("person", strconv.Itoa(id))
	}
	c := *p
	return &c, nil
}

func (r memPersons) Update(_ context.Context, p *domain.Person) error {
	if err := r.s.hit("Persons.Update"); err != nil {
		return err
	}
	if _, ok := r.s.persons[p.ID]; !ok {
		return domain.NewNotFoundError("person", strconv.Itoa(p.ID))
	}
	stored := *p
	r.s.persons[p.ID] = &stored
	return nil
}

func (r memPersons) Delete(_ context.Context, id int) error {
	if err := r.s.hit("Persons.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.persons[id]; !ok {
		return domain.NewNotFoundError("person", strconv.Itoa(id))
	}
	delete(r.s.persons, id)
	kept := r.s.authorships[:0]
	for _, a := range r.s.authorships {
		if a.PersonID != id {
			kept = append(kept, a)
		}
	}
	r.s.authorships = kept
	return nil
}

func (r memPersons) sorted() []*domain.Person {
	out := make([]*domain.Person, 0, len(r.s.persons))
	for _, p := range r.s.persons {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memPersons) List(_ context.Context) ([]*domain.Person, error) {
	if err := r.s.hit("Persons.List"); err != nil {
		return nil, err
	}
	return r.sorted(), nil
}

func (r memPersons) FindByName(_ context.Context, first, last string) ([]*domain.Person, error) {
	if err := r.s.hit("Persons.FindByName"); err != nil {
		return nil, err
	}
	out := []*domain.Person{}
	for _, p := range r.sorted() {
		if p.HasName(first, last) {
			out = append(out, p)
		}
	}
	return out, nil
}

type memPublications struct{ s *memStore }

func (r memPublications) Create(_ context.Context, pub *domain.Publication) error {
	if err := r.s.hit("Publications.Create"); err != nil {
		return err
	}
	if pub.Title == "" {
		return domain.NewValidationError("title", "title is required")
	}
	pub.ID = r.s.nextPub
	r.s.nextPub++
	stored := *pub
	stored.TemporaryAuthors = nil
	r.s.pubs[pub.ID] = &stored
	return nil
}

func (r memPublications) GetByID(_ context.Context, id int) (*domain.Publication, error) {
	if err := r.s.hit("Publications.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.pubs[id]
	if !ok {
		return nil, domain.NewNotFoundError("publication", strconv.Itoa(id))
	}
	c := *p
	return &c, nil
}

func (r memPublications) List(_ context.Context, f repository.PublicationFilter) ([]*domain.Publication, int64, error) {
	if err := r.s.hit("Publications.List"); err != nil {
		return nil, 0, err
	}
	all := make([]*domain.Publication, 0, len(r.s.pubs))
	for _, p := range r.s.pubs {
		if f.Type != "" && p.Type != f.Type {
			continue
		}
		if f.Year != 0 && p.Year != f.Year {
			continue
		}
		c := *p
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := int64(len(all))
	if f.Offset >= len(all) {
		return []*domain.Publication{}, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (r memPublications) Delete(_ context.Context, id int) error {
	if err := r.s.hit("Publications.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.pubs[id]; !ok {
		return domain.NewNotFoundError("publication", strconv.Itoa(id))
	}
	delete(r.s.pubs, id)
	kept := r.s.authorships[:0]
	for _, a := range r.s.authorships {
		if a.PublicationID != id {
			kept = append(kept, a)
		}
	}
	r.s.authorships = kept
	return nil
}

type memAuthorships struct{ s *memStore }

func (r memAuthorships) Create(_ context.Context, a *domain.Authorship) error {
	if err := r.s.hit("Authorships.Create"); err != nil {
		return err
	}
	if _, ok := r.s.persons[a.PersonID]; !ok {
		return domain.NewNotFoundError("authorship target", strconv.Itoa(a.PersonID))
	}
	if _, ok := r.s.pubs[a.PublicationID]; !ok {
		return domain.NewNotFoundError("authorship target", strconv.Itoa(a.PublicationID))
	}
	a.ID = r.s.nextAuthorship
	r.s.nextAuthorship++
	r.s.authorships = append(r.s.authorships, *a)
	return nil
}

func (r memAuthorships) filter(keep func(domain.Authorship) bool) []domain.Authorship {
	out := []domain.Authorship{}
	for _, a := range r.s.authorships {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (r memAuthorships) ListByPerson(_ context.Context, personID int) ([]domain.Authorship, error) {
	if err := r.s.hit("Authorships.ListByPerson"); err != nil {
		return nil, err
	}
	out := r.filter(func(a domain.Authorship) bool { return a.PersonID == personID })
	sort.Slice(out, func(i, j int) bool {
		if out[i].PublicationID != out[j].PublicationID {
			return out[i].PublicationID < out[j].PublicationID
		}
		return out[i].Rank < out[j].Rank
	})
	return out, nil
}

func (r memAuthorships) ListByPublication(_ context.Context, pubID int) ([]domain.Authorship, error) {
	if err := r.s.hit("Authorships.ListByPublication"); err != nil {
		return nil, err
	}
	out := r.filter(func(a domain.Authorship) bool { return a.PublicationID == pubID })
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (r memAuthorships) DeleteByPerson(_ context.Context, personID int) (int64, error) {
	if err := r.s.hit("Authorships.DeleteByPerson"); err != nil {
		return 0, err
	}
	before := len(r.s.authorships)
	r.s.authorships = r.filter(func(a domain.Authorship) bool { return a.PersonID != personID })
	return int64(before - len(r.s.authorships)), nil
}

func (r memAuthorships) ShiftRanksAfter(_ context.Context, pubID, rank int) (int64, error) {
	if err := r.s.hit("Authorships.ShiftRanksAfter"); err != nil {
		return 0, err
	}
	var n int64
	for i := range r.s.authorships {
		a := &r.s.authorships[i]
		if a.PublicationID == pubID && a.Rank > rank {
			a.Rank--
			n++
		}
	}
	return n, nil
}

func (r memAuthorships) NextRank(_ context.Context, pubID int) (int, error) {
	if err := r.s.hit("Authorships.NextRank"); err != nil {
		return 0, err
	}
	maxRank := 0
	for _, a := range r.s.authorships {
		if a.PublicationID == pubID && a.Rank > maxRank {
			maxRank = a.Rank
		}
	}
	return maxRank + 1, nil
}

// memUnitOfWork restores the store when fn fails.
type memUnitOfWork struct {
	s    *memStore
	runs int
}

func (u *memUnitOfWork) Do(_ context.Context, fn func(repos repository.Repositories) error) error {
	u.runs++
	saved := u.s.snapshot()
	if err := fn(u.s.repos()); err != nil {
		calls := u.s.calls
		*u.s = *saved
		u.s.calls = calls
		return err
	}
	return nil
}

// mockPublisher records published events.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evts ...*domain.Event) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

type mockBibTeX struct {
	mock.Mock
}

func (m *mockBibTeX) ExportPublications(pubs []*domain.Publication) ([]byte, error) {
	args := m.Called(pubs)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (m *mockBibTeX) ParsePublications(text string) ([]*domain.Publication, error) {
	args := m.Called(text)
	out, _ := args.Get(0).([]*domain.Publication)
	return out, args.Error(1)
}

type mockDocument struct {
	mock.Mock
}

func (m *mockDocument) ExportPublications(pubs []*domain.Publication, cfg export.Config) ([]byte, error) {
	args := m.Called(pubs, cfg)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func newTestPersonService(s *memStore) *PersonService {
	return NewPersonService(s.repos(), &memUnitOfWork{s: s}, names.NewComparator(names.DefaultThreshold), nil, nil, zerolog.Nop())
}

func newTestPublicationService(s *memStore, exporters Exporters) *PublicationService {
	return NewPublicationService(s.repos(), &memUnitOfWork{s: s}, names.NewComparator(names.DefaultThreshold), exporters, nil, nil, zerolog.Nop())
}
