package recruitment

import (
	"context"
	"log/slog"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collection names
const (
	COLLECTION_NAME_USERS        = "users"
	COLLECTION_NAME_SPONSORS     = "sponsors"
	COLLECTION_NAME_SITES        = "sites"
	COLLECTION_NAME_STUDIES      = "studies"
	COLLECTION_NAME_PARTICIPANTS = "participants"
	COLLECTION_NAME_NOTES        = "notes"
	COLLECTION_NAME_EVENT_LOGS   = "eventLogs"
	COLLECTION_NAME_FILES        = "files"
	COLLECTION_NAME_PROPOSALS    = "proposals"
)

type RecruitmentDBService struct {
	DBClient        *mongo.Client
	timeout         int
	noCursorTimeout bool
	DBNamePrefix    string
	useTransactions bool
}

func NewRecruitmentDBService(configs db.DBConfig) (*RecruitmentDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)
	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer conCancel()
	if err := dbClient.Ping(ctx, nil); err != nil {
		return nil, err
	}

	dbService := &RecruitmentDBService{
		DBClient:        dbClient,
		timeout:         configs.Timeout,
		noCursorTimeout: configs.NoCursorTimeout,
		DBNamePrefix:    configs.DBNamePrefix,
		useTransactions: configs.UseTransactions,
	}

	if configs.RunIndexCreation {
		if err := dbService.ensureIndexes(); err != nil {
			slog.Error("Error ensuring indexes for recruitment DB", slog.String("error", err.Error()))
		}
	}

	return dbService, nil
}

func (dbService *RecruitmentDBService) Close() error {
	ctx, cancel := dbService.getContext(context.Background())
	defer cancel()
	return dbService.DBClient.Disconnect(ctx)
}

func (dbService *RecruitmentDBService) getDBName() string {
	return dbService.DBNamePrefix + "recruitmentDB"
}

func (dbService *RecruitmentDBService) collection(name string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(name)
}

func (dbService *RecruitmentDBService) collectionUsers() *mongo.Collection {
	return dbService.collection(COLLECTION_NAME_USERS)
}

func (dbService *RecruitmentDBService) collectionSponsors() *mongo.Collection {
	return dbService.collection(COLLECTION_NAME_SPONSORS)
}

func (dbService *RecruitmentDBService) collectionSites() *mongo.Collection {
	return dbService.collection(COLLECTION_NAME_SITES)
}

func (dbService *RecruitmentDBService) collectionStudies() *mongo.Collection {
	return dbService.collection(COLLECTION_NAME_STUDIES)
}

func (dbService *RecruitmentDBService) collectionParticipants() *mongo.Collection {
	return dbService.collection(COLLECTION_NAME_PARTICIPANTS)
}

func (dbService *RecruitmentDBService) collectionNotes() *mongo.Collection {
	return dbService.collection(COLLECTION_NAME_NOTES)
}

func (dbService *RecruitmentDBService) collectionEventLogs() *mongo.Collection {
	return dbService.collection(COLLECTION_NAME_EVENT_LOGS)
}

func (dbService *RecruitmentDBService) collectionFiles() *mongo.Collection {
	return dbService.collection(COLLECTION_NAME_FILES)
}

func (dbService *RecruitmentDBService) collectionProposals() *mongo.Collection {
	return dbService.collection(COLLECTION_NAME_PROPOSALS)
}

// getContext bounds a single DB call by the configured timeout. Values of parent, including an
// active session, are kept.
func (dbService *RecruitmentDBService) getContext(parent context.Context) (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(parent, time.Duration(dbService.timeout)*time.Second)
}

// RunInUnitOfWork executes fn inside a multi-document transaction if transactions are enabled.
// Otherwise fn runs directly and writes are applied one by one.
func (dbService *RecruitmentDBService) RunInUnitOfWork(ctx context.Context, fn func(ctx context.Context) error) error {
	if !dbService.useTransactions {
		return fn(ctx)
	}

	session, err := dbService.DBClient.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (dbService *RecruitmentDBService) ensureIndexes() error {
	slog.Debug("Ensuring indexes for recruitment DB")
	ctx, cancel := dbService.getContext(context.Background())
	defer cancel()

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		dbService.collectionUsers(): {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "sponsorId", Value: 1}}},
			{Keys: bson.D{{Key: "siteId", Value: 1}}},
		},
		dbService.collectionSites(): {
			{Keys: bson.D{{Key: "sponsorId", Value: 1}}},
		},
		dbService.collectionStudies(): {
			{Keys: bson.D{{Key: "protocolId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "sponsorId", Value: 1}}},
			{Keys: bson.D{{Key: "linkedSites", Value: 1}}},
		},
		dbService.collectionParticipants(): {
			{Keys: bson.D{{Key: "studyId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "siteId", Value: 1}}},
			{Keys: bson.D{{Key: "sponsorId", Value: 1}}},
		},
		dbService.collectionNotes(): {
			{Keys: bson.D{{Key: "subject.entityType", Value: 1}, {Key: "subject.entityId", Value: 1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "isCompleted", Value: 1}, {Key: "dueDate", Value: 1}}},
		},
		dbService.collectionEventLogs(): {
			{Keys: bson.D{{Key: "subject.entityId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "action", Value: 1}}},
		},
		dbService.collectionFiles(): {
			{Keys: bson.D{{Key: "owner.entityType", Value: 1}, {Key: "owner.entityId", Value: 1}}},
		},
		dbService.collectionProposals(): {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	var lastErr error
	for collection, models := range indexes {
		if _, err := collection.Indexes().CreateMany(ctx, models); err != nil {
			slog.Error("Error creating indexes", slog.String("collection", collection.Name()), slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		existing, err := db.ListCollectionIndexes(ctx, collection)
		if err != nil {
			slog.Warn("Could not list indexes", slog.String("collection", collection.Name()), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Indexes ready", slog.String("collection", collection.Name()), slog.Any("indexes", db.IndexNames(existing)))
	}
	return lastErr
}
