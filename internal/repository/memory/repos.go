package memory

import (
	"context"
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/repository"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- users ---

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || !user.Role.Valid() {
		return primitive.NilObjectID, errors.New("user email, password hash, and a valid role are required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.data.users[user.ID] = *user
	return user.ID, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// --- coaching relationships ---

type coachingRepo struct{ s *Store }

func isOpen(status domain.RelationshipStatus) bool {
	return status == domain.RelationshipPending || status == domain.RelationshipAccepted
}

func (r *coachingRepo) Create(ctx context.Context, rel *domain.CoachingRelationship) (primitive.ObjectID, error) {
	if rel.TrainerID == primitive.NilObjectID || rel.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("coaching request requires trainerId and clientId")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rel.Status == "" {
		rel.Status = domain.RelationshipPending
	}
	if isOpen(rel.Status) {
		for _, existing := range r.s.data.coaching {
			if existing.TrainerID == rel.TrainerID && existing.ClientID == rel.ClientID && isOpen(existing.Status) {
				return primitive.NilObjectID, repository.ErrDuplicate
			}
		}
	}
	rel.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	rel.CreatedAt = now
	rel.UpdatedAt = now
	r.s.data.coaching[rel.ID] = *rel
	return rel.ID, nil
}

func (r *coachingRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CoachingRelationship, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rel, ok := r.s.data.coaching[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rel, nil
}

func (r *coachingRepo) GetOpenByPair(ctx context.Context, trainerID, clientID primitive.ObjectID) (*domain.CoachingRelationship, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rel := range r.s.data.coaching {
		if rel.TrainerID == trainerID && rel.ClientID == clientID && isOpen(rel.Status) {
			return &rel, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *coachingRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, role domain.Role) ([]domain.CoachingRelationship, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.CoachingRelationship{}
	for _, rel := range r.s.data.coaching {
		if (role == domain.RoleTrainer && rel.TrainerID == userID) || (role != domain.RoleTrainer && rel.ClientID == userID) {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *coachingRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.RelationshipStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rel, ok := r.s.data.coaching[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	rel.Status = status
	rel.RespondedAt = &now
	rel.UpdatedAt = now
	r.s.data.coaching[id] = rel
	return nil
}

// --- plan templates ---

type templateRepo struct{ s *Store }

func cloneTemplate(tpl domain.PlanTemplate) (domain.PlanTemplate, error) {
	body, err := domain.CloneBody(tpl.Body)
	if err != nil {
		return domain.PlanTemplate{}, err
	}
	tpl.Body = body
	return tpl, nil
}

func (r *templateRepo) Create(ctx context.Context, tpl *domain.PlanTemplate) (primitive.ObjectID, error) {
	if tpl.TrainerID == primitive.NilObjectID || tpl.Title == "" || !tpl.Kind.Valid() {
		return primitive.NilObjectID, errors.New("plan template requires trainerId, title, and a valid kind")
	}
	stored, err := cloneTemplate(*tpl)
	if err != nil {
		return primitive.NilObjectID, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	stored.ID = primitive.NewObjectID()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.ActiveClientCount = 0
	r.s.data.templates[stored.ID] = stored

	tpl.ID = stored.ID
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	tpl.ActiveClientCount = 0
	return stored.ID, nil
}

func (r *templateRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error) {
	r.s.mu.RLock()
	tpl, ok := r.s.data.templates[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	out, err := cloneTemplate(tpl)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *templateRepo) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID, kind domain.PlanKind, page repository.Page) ([]domain.PlanTemplate, error) {
	r.s.mu.RLock()
	var all []domain.PlanTemplate
	for _, tpl := range r.s.data.templates {
		if tpl.TrainerID != trainerID || (kind != "" && tpl.Kind != kind) {
			continue
		}
		all = append(all, tpl)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	all = paginate(all, page)
	for i := range all {
		c, err := cloneTemplate(all[i])
		if err != nil {
			return nil, err
		}
		all[i] = c
	}
	return all, nil
}

func (r *templateRepo) ListIDsByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []primitive.ObjectID
	for id, tpl := range r.s.data.templates {
		if tpl.TrainerID == trainerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *templateRepo) ListTrainerIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, tpl := range r.s.data.templates {
		if !seen[tpl.TrainerID] {
			seen[tpl.TrainerID] = true
			ids = append(ids, tpl.TrainerID)
		}
	}
	return ids, nil
}

func (r *templateRepo) Update(ctx context.Context, tpl *domain.PlanTemplate) error {
	body, err := domain.CloneBody(tpl.Body)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.templates[tpl.ID]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	stored.Title = tpl.Title
	stored.Description = tpl.Description
	stored.Body = body
	stored.UpdatedAt = now
	r.s.data.templates[tpl.ID] = stored
	tpl.UpdatedAt = now
	return nil
}

func (r *templateRepo) SetActiveClientCount(ctx context.Context, id primitive.ObjectID, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.templates[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.ActiveClientCount = count
	r.s.data.templates[id] = stored
	return nil
}

func (r *templateRepo) Delete(ctx context.Context, id, trainerID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.templates[id]
	if !ok || stored.TrainerID != trainerID {
		return repository.ErrNotFound
	}
	delete(r.s.data.templates, id)
	return nil
}

// --- plan assignments ---

type assignmentRepo struct{ s *Store }

func cloneAssignment(a domain.PlanAssignment) (domain.PlanAssignment, error) {
	data, err := domain.CloneBody(a.PlanData)
	if err != nil {
		return domain.PlanAssignment{}, err
	}
	a.PlanData = data
	if a.Documents != nil {
		a.Documents = append([]string(nil), a.Documents...)
	}
	if a.SourceTemplateID != nil {
		id := *a.SourceTemplateID
		a.SourceTemplateID = &id
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		a.CompletedAt = &t
	}
	return a, nil
}

func (r *assignmentRepo) Create(ctx context.Context, a *domain.PlanAssignment) (primitive.ObjectID, error) {
	if a.ClientID == primitive.NilObjectID || a.TrainerID == primitive.NilObjectID || !a.Kind.Valid() {
		return primitive.NilObjectID, errors.New("plan assignment requires clientId, trainerId, and a valid kind")
	}
	now := time.Now().UTC()
	if a.AssignedAt.IsZero() {
		a.AssignedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = domain.AssignmentActive
	}
	stored, err := cloneAssignment(*a)
	if err != nil {
		return primitive.NilObjectID, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// Mirrors the partial unique index on (clientId, kind) for active rows
	if stored.Status == domain.AssignmentActive {
		for _, existing := range r.s.data.assignments {
			if existing.ClientID == stored.ClientID && existing.Kind == stored.Kind && existing.Status == domain.AssignmentActive {
				return primitive.NilObjectID, repository.ErrDuplicate
			}
		}
	}
	stored.ID = primitive.NewObjectID()
	r.s.data.assignments[stored.ID] = stored
	a.ID = stored.ID
	return stored.ID, nil
}

func (r *assignmentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanAssignment, error) {
	r.s.mu.RLock()
	a, ok := r.s.data.assignments[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	out, err := cloneAssignment(a)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *assignmentRepo) FindActive(ctx context.Context, clientID primitive.ObjectID, kind domain.PlanKind) (*domain.PlanAssignment, error) {
	r.s.mu.RLock()
	var found *domain.PlanAssignment
	for _, a := range r.s.data.assignments {
		if a.ClientID == clientID && a.Kind == kind && a.Status == domain.AssignmentActive {
			a := a
			found = &a
			break
		}
	}
	r.s.mu.RUnlock()
	if found == nil {
		return nil, repository.ErrNotFound
	}
	out, err := cloneAssignment(*found)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *assignmentRepo) ListByClient(ctx context.Context, clientID, trainerID primitive.ObjectID, kind domain.PlanKind, page repository.Page) ([]domain.PlanAssignment, error) {
	r.s.mu.RLock()
	var all []domain.PlanAssignment
	for _, a := range r.s.data.assignments {
		if a.ClientID != clientID || a.TrainerID != trainerID || (kind != "" && a.Kind != kind) {
			continue
		}
		all = append(all, a)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].AssignedAt.After(all[j].AssignedAt) })
	all = paginate(all, page)
	for i := range all {
		c, err := cloneAssignment(all[i])
		if err != nil {
			return nil, err
		}
		all[i] = c
	}
	return all, nil
}

func (r *assignmentRepo) Close(ctx context.Context, id primitive.ObjectID, status domain.AssignmentStatus, completedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.data.assignments[id]
	if !ok || a.Status != domain.AssignmentActive {
		return repository.ErrNotFound
	}
	a.Status = status
	a.CompletedAt = &completedAt
	a.UpdatedAt = time.Now().UTC()
	r.s.data.assignments[id] = a
	return nil
}

func (r *assignmentRepo) CountActiveByTemplate(ctx context.Context, templateID primitive.ObjectID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, a := range r.s.data.assignments {
		if a.Status == domain.AssignmentActive && a.SourceTemplateID != nil && *a.SourceTemplateID == templateID {
			n++
		}
	}
	return n, nil
}

func (r *assignmentRepo) CountActiveGroupedByTemplate(ctx context.Context, trainerID primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[primitive.ObjectID]int)
	for _, a := range r.s.data.assignments {
		if a.TrainerID == trainerID && a.Status == domain.AssignmentActive && a.SourceTemplateID != nil {
			counts[*a.SourceTemplateID]++
		}
	}
	return counts, nil
}

func (r *assignmentRepo) ReferencesDocument(ctx context.Context, objectKey string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.data.assignments {
		for _, key := range a.Documents {
			if key == objectKey {
				return true, nil
			}
		}
	}
	return false, nil
}

// --- tracking days ---

type trackingRepo struct{ s *Store }

func cloneDay(d domain.TrackingDay) domain.TrackingDay {
	entries := make(map[string]domain.EntryState, len(d.Entries))
	for k, v := range d.Entries {
		entries[k] = v
	}
	d.Entries = entries
	return d
}

func (r *trackingRepo) Get(ctx context.Context, assignmentID primitive.ObjectID, date string) (*domain.TrackingDay, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.data.days[dayKey{assignmentID, date}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneDay(d)
	return &out, nil
}

func (r *trackingRepo) Upsert(ctx context.Context, day *domain.TrackingDay) error {
	if day.AssignmentID == primitive.NilObjectID || day.Date == "" {
		return errors.New("tracking day requires assignmentId and date")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := dayKey{day.AssignmentID, day.Date}
	now := time.Now().UTC()
	stored := cloneDay(*day)
	if existing, ok := r.s.data.days[key]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = primitive.NewObjectID()
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.s.data.days[key] = stored
	day.ID = stored.ID
	day.CreatedAt = stored.CreatedAt
	day.UpdatedAt = now
	return nil
}

func (r *trackingRepo) ListByAssignment(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.TrackingDay, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.TrackingDay
	for k, d := range r.s.data.days {
		if k.assignmentID == assignmentID {
			out = append(out, cloneDay(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// --- documents ---

type documentRepo struct{ s *Store }

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document) (primitive.ObjectID, error) {
	if doc.CoachingRequestID == primitive.NilObjectID || doc.TrainerID == primitive.NilObjectID || doc.S3ObjectKey == "" {
		return primitive.NilObjectID, errors.New("document requires coachingRequestId, trainerId, and s3ObjectKey")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.documents[doc.S3ObjectKey]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = time.Now().UTC()
	r.s.data.documents[doc.S3ObjectKey] = *doc
	return doc.ID, nil
}

func (r *documentRepo) GetByObjectKey(ctx context.Context, objectKey string) (*domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	doc, ok := r.s.data.documents[objectKey]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

func paginate[T any](items []T, page repository.Page) []T {
	page = page.Normalize()
	start := page.Skip()
	if start < 0 || start >= len(items) {
		return nil
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (r *documentRepo) ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Document{}
	for _, doc := range r.s.data.documents {
		if doc.CoachingRequestID == requestID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *documentRepo) Delete(ctx context.Context, objectKey string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.documents[objectKey]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.documents, objectKey)
	return nil
}
