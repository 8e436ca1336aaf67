package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"billister-api/criteria"
	"billister-api/models"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
)

// RepositorySuite runs against a real Postgres pointed to by DATABASE_URL.
// Every test uses its own make name so seeded demo listings never interfere.
type RepositorySuite struct {
	suite.Suite
	db  *sql.DB
	ctx context.Context

	listings *ListingsRepository
	users    *UsersRepository
	searches *SavedSearchesRepository
	events   *MatchEventsRepository
	favs     *FavoritesRepository
}

func TestRepositorySuite(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping repository integration tests")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	s.Require().NoError(err)
	s.Require().NoError(db.Ping())

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	s.Require().NoError(err)
	m, err := migrate.NewWithDatabaseInstance("file://../migrations", "postgres", driver)
	s.Require().NoError(err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		s.Require().NoError(err)
	}

	s.db = db
	s.ctx = context.Background()
	s.listings = NewListingsRepository(db)
	s.users = NewUsersRepository(db)
	s.searches = NewSavedSearchesRepository(db)
	s.events = NewMatchEventsRepository(db)
	s.favs = NewFavoritesRepository(db)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *RepositorySuite) newUser() *models.User {
	u, err := s.users.CreateUser(s.ctx, uuid.NewString()+"@example.dk", "hemmeligt-kodeord")
	s.Require().NoError(err)
	return u
}

func (s *RepositorySuite) newListing(seller uuid.UUID, mk string, price float64, mutate ...func(*models.Listing)) *models.Listing {
	year := 2021
	l := &models.Listing{
		SellerUserID: seller,
		Make:         mk,
		Model:        "Model 3",
		Year:         &year,
		PriceDkk:     price,
		FuelType:     "el",
		Transmission: "automat",
		FeaturesJSON: `["navigation"]`,
	}
	for _, fn := range mutate {
		fn(l)
	}
	created, err := s.listings.Create(s.ctx, l)
	s.Require().NoError(err)
	return created
}

func uniqueMake() string {
	return "Testmake-" + uuid.NewString()[:8]
}

func (s *RepositorySuite) TestDuplicateEmailIsRejected() {
	u := s.newUser()
	_, err := s.users.CreateUser(s.ctx, "  "+u.Email+" ", "andet-kodeord")
	s.ErrorIs(err, ErrEmailTaken)

	found, err := s.users.GetUserByEmail(s.ctx, u.Email)
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)

	missing, err := s.users.GetUserByEmail(s.ctx, "nobody-"+uuid.NewString()+"@example.dk")
	s.NoError(err)
	s.Nil(missing)
}

func (s *RepositorySuite) TestCreateAssignsGeohashAndImages() {
	seller := s.newUser()
	lat, lng := 55.6761, 12.5683
	l := s.newListing(seller.ID, uniqueMake(), 319900, func(l *models.Listing) {
		l.Latitude, l.Longitude = &lat, &lng
		l.Images = []models.ListingImage{{URL: "https://img/1.jpg", SortOrder: 0}, {URL: "https://img/2.jpg", SortOrder: 1}}
	})

	got, err := s.listings.GetByID(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Geohash)
	s.Len(*got.Geohash, geohashPrecision)
	s.Require().Len(got.Images, 2)
	s.Equal("https://img/1.jpg", got.Images[0].URL)

	added, err := s.listings.AddImage(s.ctx, l.ID, models.ListingImage{URL: "https://img/3.jpg"})
	s.Require().NoError(err)
	s.Equal(2, added.SortOrder)
}

func (s *RepositorySuite) TestSearchAppliesCriteriaAndPaging() {
	seller := s.newUser()
	mk := uniqueMake()
	s.newListing(seller.ID, mk, 200000)
	s.newListing(seller.ID, mk, 300000)
	s.newListing(seller.ID, mk, 400000)

	maxPrice := 350000.0
	items, total, err := s.listings.Search(s.ctx, criteria.FilterCriteria{Makes: []string{mk}, PriceMax: &maxPrice}, 1, 1)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(items, 1)
	s.Equal(300000.0, items[0].PriceDkk, "newest first")

	items, _, err = s.listings.Search(s.ctx, criteria.FilterCriteria{Makes: []string{mk}, PriceMax: &maxPrice}, 2, 1)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(200000.0, items[0].PriceDkk)
	s.NotNil(items[0].Images)
}

func (s *RepositorySuite) TestRegisterViewCountsAndPrunes() {
	seller := s.newUser()
	l := s.newListing(seller.ID, uniqueMake(), 150000)

	ok, err := s.listings.RegisterView(s.ctx, l.ID, nil, "10.0.0.1")
	s.Require().NoError(err)
	s.True(ok)
	ok, err = s.listings.RegisterView(s.ctx, l.ID, &seller.ID, "")
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.listings.GetByID(s.ctx, l.ID)
	s.Require().NoError(err)
	s.EqualValues(2, got.ViewCount)

	ok, err = s.listings.RegisterView(s.ctx, uuid.New(), nil, "")
	s.NoError(err)
	s.False(ok)

	_, err = s.listings.PruneViews(s.ctx, time.Now().Add(time.Hour))
	s.NoError(err)
}

func (s *RepositorySuite) TestFavoritesAreIdempotent() {
	seller := s.newUser()
	buyer := s.newUser()
	l := s.newListing(seller.ID, uniqueMake(), 99000)

	s.Require().NoError(s.favs.Add(s.ctx, buyer.ID, l.ID))
	s.Require().NoError(s.favs.Add(s.ctx, buyer.ID, l.ID))

	got, err := s.listings.GetByID(s.ctx, l.ID)
	s.Require().NoError(err)
	s.EqualValues(1, got.FavoriteCount)

	items, err := s.favs.List(s.ctx, buyer.ID)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(l.ID, items[0].ID)

	s.Require().NoError(s.favs.Remove(s.ctx, buyer.ID, l.ID))
	s.Require().NoError(s.favs.Remove(s.ctx, buyer.ID, l.ID))
	got, err = s.listings.GetByID(s.ctx, l.ID)
	s.Require().NoError(err)
	s.EqualValues(0, got.FavoriteCount)
}

func (s *RepositorySuite) TestMatchEventsLifecycle() {
	seller := s.newUser()
	owner := s.newUser()
	l := s.newListing(seller.ID, uniqueMake(), 250000)
	search, err := s.searches.Create(s.ctx, owner.ID, "Elbiler", `{"fuelTypes":["el"]}`)
	s.Require().NoError(err)

	batch := []models.MatchEvent{{
		UserID: owner.ID, SavedSearchID: search.ID, ListingID: l.ID,
		Title: "Ny bil matcher din søgning", Body: "Tesla Model 3",
	}}
	s.Require().NoError(s.events.AppendMatchEvents(s.ctx, batch))
	s.NotEqual(uuid.Nil, batch[0].ID)

	unsent, err := s.events.ListForUser(s.ctx, owner.ID, true)
	s.Require().NoError(err)
	s.Require().Len(unsent, 1)

	n, err := s.events.MarkSent(s.ctx, owner.ID, []uuid.UUID{batch[0].ID})
	s.Require().NoError(err)
	s.EqualValues(1, n)

	n, err = s.events.MarkSent(s.ctx, seller.ID, []uuid.UUID{batch[0].ID})
	s.Require().NoError(err)
	s.EqualValues(0, n, "other users cannot mark someone else's events")

	unsent, err = s.events.ListForUser(s.ctx, owner.ID, true)
	s.Require().NoError(err)
	s.Empty(unsent)

	stored, err := s.searches.GetForUser(s.ctx, search.ID, owner.ID)
	s.Require().NoError(err)
	s.NotNil(stored.LastNotifiedAt)
}

func (s *RepositorySuite) TestSavedSearchesAreScopedToOwner() {
	owner := s.newUser()
	other := s.newUser()
	search, err := s.searches.Create(s.ctx, owner.ID, "Diesel", `{"fuelTypes":["diesel"]}`)
	s.Require().NoError(err)

	foreign, err := s.searches.GetForUser(s.ctx, search.ID, other.ID)
	s.NoError(err)
	s.Nil(foreign)

	name := "Diesel stationcar"
	updated, err := s.searches.Update(s.ctx, search.ID, other.ID, &name, nil)
	s.NoError(err)
	s.False(updated)

	updated, err = s.searches.Update(s.ctx, search.ID, owner.ID, &name, nil)
	s.NoError(err)
	s.True(updated)

	recent, err := s.searches.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.NotEmpty(recent)

	s.Require().NoError(s.searches.Delete(s.ctx, search.ID, owner.ID))
	s.Require().NoError(s.searches.Delete(s.ctx, search.ID, owner.ID))
	gone, err := s.searches.GetForUser(s.ctx, search.ID, owner.ID)
	s.NoError(err)
	s.Nil(gone)
}
