package recruitment

import (
	"context"
	"fmt"

	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ownershipLookup is the read access needed to walk from an entity to its sponsor and sites.
type ownershipLookup interface {
	GetSponsorByID(ctx context.Context, id primitive.ObjectID) (types.Sponsor, error)
	GetSiteByID(ctx context.Context, id primitive.ObjectID) (types.Site, error)
	GetStudyByID(ctx context.Context, id primitive.ObjectID) (types.Study, error)
	GetParticipantByID(ctx context.Context, id primitive.ObjectID) (types.Participant, error)
	GetNoteByID(ctx context.Context, id primitive.ObjectID) (types.Note, error)
	GetFileInfoByID(ctx context.Context, id primitive.ObjectID) (types.FileInfo, error)
}

// OwnershipOf resolves which sponsor and sites own the referenced entity. Participants are owned by
// the sponsor of their study, notes and files by the owner of the entity they are attached to.
func (dbService *RecruitmentDBService) OwnershipOf(ctx context.Context, ref types.EntityRef) (permissionchecker.Ownership, error) {
	return resolveOwnership(ctx, dbService, ref)
}

func resolveOwnership(ctx context.Context, lookup ownershipLookup, ref types.EntityRef) (permissionchecker.Ownership, error) {
	switch ref.Type {
	case types.ENTITY_TYPE_SPONSOR:
		if _, err := lookup.GetSponsorByID(ctx, ref.ID); err != nil {
			return permissionchecker.Ownership{}, err
		}
		return permissionchecker.Ownership{SponsorID: ref.ID}, nil

	case types.ENTITY_TYPE_SITE:
		site, err := lookup.GetSiteByID(ctx, ref.ID)
		if err != nil {
			return permissionchecker.Ownership{}, err
		}
		return permissionchecker.Ownership{SponsorID: site.SponsorID, SiteIDs: []primitive.ObjectID{site.ID}}, nil

	case types.ENTITY_TYPE_STUDY:
		study, err := lookup.GetStudyByID(ctx, ref.ID)
		if err != nil {
			return permissionchecker.Ownership{}, err
		}
		return permissionchecker.Ownership{SponsorID: study.SponsorID, SiteIDs: study.LinkedSites}, nil

	case types.ENTITY_TYPE_PARTICIPANT:
		participant, err := lookup.GetParticipantByID(ctx, ref.ID)
		if err != nil {
			return permissionchecker.Ownership{}, err
		}
		study, err := lookup.GetStudyByID(ctx, participant.StudyID)
		if err != nil {
			return permissionchecker.Ownership{}, fmt.Errorf("study of participant %s: %w", ref.ID.Hex(), err)
		}
		return permissionchecker.Ownership{SponsorID: study.SponsorID, SiteIDs: []primitive.ObjectID{participant.SiteID}}, nil

	case types.ENTITY_TYPE_NOTE:
		note, err := lookup.GetNoteByID(ctx, ref.ID)
		if err != nil {
			return permissionchecker.Ownership{}, err
		}
		if note.Subject.Is(types.ENTITY_TYPE_NOTE) {
			return permissionchecker.Ownership{}, types.ErrInvalidEntityRef
		}
		return resolveOwnership(ctx, lookup, note.Subject)

	case types.ENTITY_TYPE_FILE:
		file, err := lookup.GetFileInfoByID(ctx, ref.ID)
		if err != nil {
			return permissionchecker.Ownership{}, err
		}
		if file.Owner.Is(types.ENTITY_TYPE_FILE) {
			return permissionchecker.Ownership{}, types.ErrInvalidEntityRef
		}
		return resolveOwnership(ctx, lookup, file.Owner)
	}

	// users and proposals are not owned by a sponsor or site
	return permissionchecker.Ownership{}, nil
}
