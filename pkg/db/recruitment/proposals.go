package recruitment

import (
	"context"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func (dbService *RecruitmentDBService) CreateProposal(ctx context.Context, proposal types.Proposal) (types.Proposal, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	now := time.Now()
	proposal.ID = primitive.NewObjectID()
	proposal.Status = types.PROPOSAL_STATUS_NEW
	proposal.AssignedTo = nil
	proposal.CreatedAt = now
	proposal.UpdatedAt = now

	_, err := dbService.collectionProposals().InsertOne(ctx, proposal)
	return proposal, err
}

func (dbService *RecruitmentDBService) GetProposalByID(ctx context.Context, id primitive.ObjectID) (types.Proposal, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findByID[types.Proposal](ctx, dbService.collectionProposals(), id)
}

func (dbService *RecruitmentDBService) GetProposals(ctx context.Context, filter bson.M, page int64, limit int64) (types.Page[types.Proposal], error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return findPage[types.Proposal](ctx, dbService.collectionProposals(), filter, sortByCreatedDesc, page, limit)
}

func (dbService *RecruitmentDBService) UpdateProposal(ctx context.Context, id primitive.ObjectID, set bson.M) (types.Proposal, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return updateAndGet[types.Proposal](ctx, dbService.collectionProposals(), bson.M{"_id": id}, set, nil)
}

func (dbService *RecruitmentDBService) DeleteProposal(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	res, err := dbService.collectionProposals().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
