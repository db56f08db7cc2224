package apihandlers

import (
	"context"

	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/workflow"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeLookup serves the pre-write reads of the handlers from memory.
type fakeLookup struct {
	studies      map[primitive.ObjectID]types.Study
	sites        map[primitive.ObjectID]types.Site
	participants []types.Participant
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		studies: map[primitive.ObjectID]types.Study{},
		sites:   map[primitive.ObjectID]types.Site{},
	}
}

func (l *fakeLookup) addStudy(sponsorID primitive.ObjectID, linkedSites ...primitive.ObjectID) types.Study {
	study := types.Study{ID: primitive.NewObjectID(), Title: "Study", SponsorID: sponsorID, LinkedSites: linkedSites}
	l.studies[study.ID] = study
	return study
}

func (l *fakeLookup) addSite(sponsorID primitive.ObjectID) types.Site {
	site := types.Site{ID: primitive.NewObjectID(), Name: "Site", SponsorID: sponsorID}
	l.sites[site.ID] = site
	return site
}

func (l *fakeLookup) GetStudyByID(_ context.Context, id primitive.ObjectID) (types.Study, error) {
	study, ok := l.studies[id]
	if !ok {
		return types.Study{}, mongo.ErrNoDocuments
	}
	return study, nil
}

func (l *fakeLookup) GetSiteByID(_ context.Context, id primitive.ObjectID) (types.Site, error) {
	site, ok := l.sites[id]
	if !ok {
		return types.Site{}, mongo.ErrNoDocuments
	}
	return site, nil
}

// GetParticipants understands equality filters on studyId and siteId.
func (l *fakeLookup) GetParticipants(_ context.Context, filter bson.M, page int64, limit int64) (types.Page[types.Participant], error) {
	var items []types.Participant
	for _, p := range l.participants {
		if v, ok := filter["studyId"]; ok && v != p.StudyID {
			continue
		}
		if v, ok := filter["siteId"]; ok && v != p.SiteID {
			continue
		}
		items = append(items, p)
	}
	return types.NewPage(items, int64(len(items)), page, limit), nil
}

func (l *fakeLookup) OwnershipOf(_ context.Context, ref types.EntityRef) (permissionchecker.Ownership, error) {
	switch ref.Type {
	case types.ENTITY_TYPE_STUDY:
		if study, ok := l.studies[ref.ID]; ok {
			return permissionchecker.Ownership{SponsorID: study.SponsorID, SiteIDs: study.LinkedSites}, nil
		}
	case types.ENTITY_TYPE_SITE:
		if site, ok := l.sites[ref.ID]; ok {
			return permissionchecker.Ownership{SponsorID: site.SponsorID, SiteIDs: []primitive.ObjectID{site.ID}}, nil
		}
	case types.ENTITY_TYPE_PARTICIPANT:
		for _, p := range l.participants {
			if p.ID == ref.ID {
				return permissionchecker.Ownership{SponsorID: l.studies[p.StudyID].SponsorID, SiteIDs: []primitive.ObjectID{p.SiteID}}, nil
			}
		}
	}
	return permissionchecker.Ownership{}, mongo.ErrNoDocuments
}

// transitionStore is an in-memory workflow store without rollback.
type transitionStore struct {
	participants map[primitive.ObjectID]types.Participant
	enrolled     map[primitive.ObjectID]int64
	notes        []types.Note
	logs         []types.EventLog
}

func newTransitionStore() *transitionStore {
	return &transitionStore{
		participants: map[primitive.ObjectID]types.Participant{},
		enrolled:     map[primitive.ObjectID]int64{},
	}
}

func (s *transitionStore) Do(ctx context.Context, fn func(ctx context.Context, tx workflow.Tx) error) error {
	return fn(ctx, s)
}

func (s *transitionStore) GetParticipant(_ context.Context, id primitive.ObjectID) (types.Participant, error) {
	p, ok := s.participants[id]
	if !ok {
		return types.Participant{}, workflow.ErrParticipantNotFound
	}
	return p, nil
}

func (s *transitionStore) UpdateParticipantStatus(_ context.Context, id primitive.ObjectID, from types.ParticipantStatus, to types.ParticipantStatus) (types.Participant, error) {
	p, ok := s.participants[id]
	if !ok || p.Status != from {
		return types.Participant{}, workflow.ErrConcurrentTransition
	}
	p.Status = to
	s.participants[id] = p
	return p, nil
}

func (s *transitionStore) CreateNote(_ context.Context, note types.Note) (types.Note, error) {
	note.ID = primitive.NewObjectID()
	s.notes = append(s.notes, note)
	return note, nil
}

func (s *transitionStore) IncrementEnrolledSubjects(_ context.Context, studyID primitive.ObjectID) error {
	s.enrolled[studyID]++
	return nil
}

func (s *transitionStore) CompleteOpenNotes(_ context.Context, subject types.EntityRef) (int64, error) {
	var n int64
	for i, note := range s.notes {
		if note.Subject == subject && !note.IsCompleted {
			s.notes[i].IsCompleted = true
			n++
		}
	}
	return n, nil
}

func (s *transitionStore) AppendEventLog(_ context.Context, entry types.EventLog) error {
	s.logs = append(s.logs, entry)
	return nil
}
