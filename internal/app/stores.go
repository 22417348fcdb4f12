package app

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/memstore"
	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/repositories/changerecord"
	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/repositories/company"
	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/repositories/individual"
	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/repositories/relationship"
	"github.com/michaeltoohig/unofficial-vfsc-graph/internal/repositories/session"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/explorer"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/graph"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/graphsync"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/ingest"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/processor"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/rebuilder"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/resolver"
)

type CompanyStore interface {
	resolver.CompanyStore
	processor.CompanyStore
	graph.CompanyLister
	explorer.CompanyStore
	graphsync.CompanyGetter
}

type IndividualStore interface {
	resolver.IndividualStore
	graph.IndividualLister
	explorer.IndividualStore
	graphsync.IndividualGetter
}

type RelationshipStore interface {
	rebuilder.RelationshipStore
	graph.RelationshipLister
	explorer.RelationshipStore
}

type ChangeStore interface {
	processor.ChangeStore
	explorer.ChangeStore
}

type SessionStore interface {
	ingest.SessionStore
	Get(ctx context.Context, id int64) (*models.Session, error)
	List(ctx context.Context, limit int) ([]models.Session, error)
	ListFailedItems(ctx context.Context, sessionID int64) ([]models.FailedItem, error)
}

// Stores is the persistence the services are wired against, either
// Postgres or the in-memory store used for dry runs.
type Stores struct {
	Companies     CompanyStore
	Individuals   IndividualStore
	Relationships RelationshipStore
	Changes       ChangeStore
	Sessions      SessionStore
	Tx            processor.Transactor
}

func PostgresStores(db *database.DatabaseInstance, logger ectologger.Logger) Stores {
	return Stores{
		Companies:     company.NewRepository(db, logger),
		Individuals:   individual.NewRepository(db, logger),
		Relationships: relationship.NewRepository(db, logger),
		Changes:       changerecord.NewRepository(db, logger),
		Sessions:      session.NewRepository(db, logger),
		Tx:            db,
	}
}

func MemoryStores(store *memstore.Store) Stores {
	return Stores{
		Companies:     store.Companies(),
		Individuals:   store.Individuals(),
		Relationships: store.Relationships(),
		Changes:       store.Changes(),
		Sessions:      store.Sessions(),
		Tx:            store,
	}
}
