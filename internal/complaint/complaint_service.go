// Package complaint implements complaint intake, listing and status changes.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/config"
	"fixmycity/backend/internal/feed"
	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/metrics"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/notify"
	"fixmycity/backend/internal/storage"
	"fixmycity/backend/internal/upload"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrMissingFields      = errors.New("please provide complaint type, sub type, description, area and city")
	ErrMissingLocation    = errors.New("location is required: provide latitude and longitude")
	ErrInvalidLocation    = errors.New("latitude must be between -90 and 90 and longitude between -180 and 180")
	ErrTypeNotFound       = errors.New("complaint type not found")
	ErrDepartmentNotFound = errors.New("department not found for this complaint type")
	ErrInvalidSubType     = errors.New("invalid sub type")
	ErrTooManyImages      = fmt.Errorf("at most %d images are allowed", config.MaxComplaintImages)
	ErrNotFound           = errors.New("complaint not found")
	ErrInvalidStatus      = errors.New("invalid complaint status")
	ErrBlockNotFound      = errors.New("block not found")
	ErrBlockMismatch      = errors.New("block belongs to another department")
)

// Store is the part of storage the complaint service needs.
type Store interface {
	GetComplaintTypeByID(ctx context.Context, id primitive.ObjectID) (*models.ComplaintType, error)
	GetDepartmentByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error)
	GetBlockByID(ctx context.Context, id primitive.ObjectID) (*models.Block, error)
	SaveComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaintByID(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error)
	ListComplaints(ctx context.Context, f storage.ComplaintFilter, p storage.Page) ([]models.Complaint, int64, error)
	UpdateComplaint(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Complaint, error)
}

// Submission is a complaint as received from a citizen. Coordinates are
// kept as text so that absence can be told apart from zero.
type Submission struct {
	TypeID      string
	SubTypeKey  string
	Description string
	Address     models.Address
	Latitude    string
	Longitude   string
	Attachments []*multipart.FileHeader
	Meta        activity.RequestMeta
}

// Service handles the complaint lifecycle.
type Service struct {
	Store     Store
	Uploader  upload.Uploader
	Activity  *activity.Logger
	Publisher feed.Publisher
	Notifier  notify.Notifier

	now func() time.Time
}

// NewService wires a complaint service. Publisher and notifier may be nil.
func NewService(s Store, u upload.Uploader, a *activity.Logger, p feed.Publisher, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{Store: s, Uploader: u, Activity: a, Publisher: p, Notifier: n, now: time.Now}
}

type resolved struct {
	ct      *models.ComplaintType
	dept    *models.Department
	subType models.SubType
	lat     float64
	lng     float64
}

// validate runs every check that must pass before anything is uploaded or
// written. The order of the checks is part of the API contract.
func (s *Service) validate(ctx context.Context, sub *Submission) (*resolved, error) {
	sub.TypeID = strings.TrimSpace(sub.TypeID)
	sub.SubTypeKey = strings.TrimSpace(sub.SubTypeKey)
	sub.Description = strings.TrimSpace(sub.Description)
	sub.Address.Area = strings.TrimSpace(sub.Address.Area)
	sub.Address.City = strings.TrimSpace(sub.Address.City)

	if sub.TypeID == "" || sub.SubTypeKey == "" || sub.Description == "" ||
		sub.Address.Area == "" || sub.Address.City == "" {
		return nil, ErrMissingFields
	}

	latText, lngText := strings.TrimSpace(sub.Latitude), strings.TrimSpace(sub.Longitude)
	if latText == "" || lngText == "" {
		return nil, ErrMissingLocation
	}
	lat, errLat := strconv.ParseFloat(latText, 64)
	lng, errLng := strconv.ParseFloat(lngText, 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, ErrInvalidLocation
	}

	typeID, err := primitive.ObjectIDFromHex(sub.TypeID)
	if err != nil {
		return nil, ErrTypeNotFound
	}
	ct, err := s.Store.GetComplaintTypeByID(ctx, typeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load complaint type: %w", err)
	}

	if ct.DepartmentID == nil {
		return nil, ErrDepartmentNotFound
	}
	dept, err := s.Store.GetDepartmentByID(ctx, *ct.DepartmentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load department: %w", err)
	}

	key, err := strconv.Atoi(sub.SubTypeKey)
	if err != nil {
		return nil, ErrInvalidSubType
	}
	st, ok := ct.ActiveSubType(key)
	if !ok {
		return nil, ErrInvalidSubType
	}

	if len(sub.Attachments) > config.MaxComplaintImages {
		return nil, ErrTooManyImages
	}

	return &resolved{ct: ct, dept: dept, subType: st, lat: lat, lng: lng}, nil
}

// Submit validates and files a complaint for the authenticated user.
// Photos are uploaded best-effort: if any attachment cannot be read or
// accepted, or the batch upload fails, the complaint is still created
// without images. If the complaint cannot be persisted the
// uploaded photos are deleted again.
func (s *Service) Submit(ctx context.Context, p *models.Principal, sub Submission) (models.ComplaintView, error) {
	log := logging.Ctx(ctx)

	r, err := s.validate(ctx, &sub)
	if err != nil {
		metrics.ComplaintsSubmitted.WithLabelValues("rejected").Inc()
		return models.ComplaintView{}, err
	}

	images := []string{}
	files, err := upload.ReadMultipart(sub.Attachments)
	if err != nil {
		metrics.ImageUploadFailures.Inc()
		log.Warn().Err(err).Int("files", len(sub.Attachments)).Msg("attachments unreadable, filing complaint without images")
		files = nil
	}
	if len(files) > 0 {
		urls, err := upload.UploadAll(ctx, s.Uploader, files)
		if err != nil {
			metrics.ImageUploadFailures.Inc()
			log.Warn().Err(err).Int("files", len(files)).Msg("image upload failed, filing complaint without images")
		} else {
			images = urls
		}
	}

	c := &models.Complaint{
		UserID:       p.ID,
		TypeID:       r.ct.ID,
		DepartmentID: r.dept.ID,
		SubTypeKey:   r.subType.Key,
		SubType:      r.subType.Name,
		Description:  sub.Description,
		Address:      sub.Address,
		Location:     models.NewGeoPoint(r.lat, r.lng),
		Images:       images,
		Status:       models.ComplaintPending,
	}
	if err := s.Store.SaveComplaint(ctx, c); err != nil {
		metrics.ComplaintsSubmitted.WithLabelValues("error").Inc()
		upload.DeleteAll(context.WithoutCancel(ctx), s.Uploader, images)
		return models.ComplaintView{}, fmt.Errorf("save complaint: %w", err)
	}

	outcome := "created"
	if len(sub.Attachments) > 0 && len(images) == 0 {
		outcome = "created_without_images"
	}
	metrics.ComplaintsSubmitted.WithLabelValues(outcome).Inc()

	s.Activity.Log(ctx, activity.Entry{
		Actor:      p,
		Action:     activity.ActionComplaintSubmitted,
		TargetType: "complaint",
		TargetID:   c.ID.Hex(),
		Success:    true,
		Details: map[string]interface{}{
			"complaintType": r.ct.Name,
			"subType":       c.SubType,
			"images":        len(images),
			"city":          c.Address.City,
		},
		Meta: sub.Meta,
	})

	view := c.View(r.ct, r.dept)
	s.publish(ctx, models.EventComplaintCreated, p, c, view)
	s.Notifier.ComplaintCreated(ctx, view)

	log.Info().Str("complaint", view.ID).Str("user", p.ID.Hex()).Int("images", len(images)).Msg("complaint filed")
	return view, nil
}

func (s *Service) publish(ctx context.Context, kind string, actor *models.Principal, c *models.Complaint, v models.ComplaintView) {
	if s.Publisher == nil {
		return
	}
	ev := models.ComplaintEvent{
		Type:         kind,
		ComplaintID:  v.ID,
		DepartmentID: v.DepartmentID,
		TypeName:     v.TypeName,
		SubType:      v.SubType,
		Status:       c.Status,
		Area:         c.Address.Area,
		City:         c.Address.City,
		ActorKind:    actor.Kind,
		ActorID:      actor.ID.Hex(),
		At:           s.now().UTC(),
	}
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event", kind).Msg("feed publish failed")
	}
}

// views flattens complaints, resolving each type and department once.
func (s *Service) views(ctx context.Context, cs []models.Complaint) []models.ComplaintView {
	types := map[primitive.ObjectID]*models.ComplaintType{}
	depts := map[primitive.ObjectID]*models.Department{}

	out := make([]models.ComplaintView, 0, len(cs))
	for i := range cs {
		c := &cs[i]
		ct, ok := types[c.TypeID]
		if !ok {
			var err error
			ct, err = s.Store.GetComplaintTypeByID(ctx, c.TypeID)
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).Str("type", c.TypeID.Hex()).Msg("complaint type not resolved")
			}
			types[c.TypeID] = ct
		}
		dept, ok := depts[c.DepartmentID]
		if !ok {
			var err error
			dept, err = s.Store.GetDepartmentByID(ctx, c.DepartmentID)
			if err != nil {
				dept = nil
			}
			depts[c.DepartmentID] = dept
		}
		out = append(out, c.View(ct, dept))
	}
	return out
}

func (s *Service) list(ctx context.Context, f storage.ComplaintFilter, page storage.Page) (storage.PagedResult[models.ComplaintView], error) {
	page = page.Normalize(config.DefaultPageSize, config.MaxPageSize)
	cs, total, err := s.Store.ListComplaints(ctx, f, page)
	if err != nil {
		return storage.PagedResult[models.ComplaintView]{}, fmt.Errorf("list complaints: %w", err)
	}
	return storage.NewPagedResult(s.views(ctx, cs), total, page), nil
}

// ListMine returns the caller's own complaints, newest first.
func (s *Service) ListMine(ctx context.Context, p *models.Principal, page storage.Page) (storage.PagedResult[models.ComplaintView], error) {
	id := p.ID
	return s.list(ctx, storage.ComplaintFilter{UserID: &id}, page)
}

// ListForWorker returns complaints of the worker's department matching f.
// A block in f narrows the listing further.
func (s *Service) ListForWorker(ctx context.Context, p *models.Principal, f storage.ComplaintFilter, page storage.Page) (storage.PagedResult[models.ComplaintView], error) {
	dept := p.DepartmentID
	f.DepartmentID = &dept
	f.UserID = nil
	return s.list(ctx, f, page)
}

// ListAll returns complaints across departments for admins.
func (s *Service) ListAll(ctx context.Context, f storage.ComplaintFilter, page storage.Page) (storage.PagedResult[models.ComplaintView], error) {
	return s.list(ctx, f, page)
}

// load fetches a complaint visible to p. Complaints outside the caller's
// scope are reported as not found.
func (s *Service) load(ctx context.Context, p *models.Principal, id string) (*models.Complaint, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	c, err := s.Store.GetComplaintByID(ctx, oid)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w", err)
	}
	switch p.Kind {
	case models.KindUser:
		if c.UserID != p.ID {
			return nil, ErrNotFound
		}
	case models.KindWorker:
		if c.DepartmentID != p.DepartmentID {
			return nil, ErrNotFound
		}
	}
	return c, nil
}

// Get returns one complaint visible to p.
func (s *Service) Get(ctx context.Context, p *models.Principal, id string) (models.ComplaintView, error) {
	c, err := s.load(ctx, p, id)
	if err != nil {
		return models.ComplaintView{}, err
	}
	return s.views(ctx, []models.Complaint{*c})[0], nil
}

// UpdateStatus moves a complaint to status. Workers may only touch their
// own department's complaints and become the assigned worker.
func (s *Service) UpdateStatus(ctx context.Context, actor *models.Principal, id string, status models.ComplaintStatus, note string, meta activity.RequestMeta) (models.ComplaintView, error) {
	if !status.Valid() {
		return models.ComplaintView{}, ErrInvalidStatus
	}
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return models.ComplaintView{}, err
	}

	from := c.Status
	set := bson.M{"status": status}
	changed := []string{"status"}
	if note = strings.TrimSpace(note); note != "" {
		set["resolutionNote"] = note
		changed = append(changed, "resolutionNote")
	}
	if status == models.ComplaintResolved {
		if from != models.ComplaintResolved {
			set["resolvedAt"] = s.now().UTC()
			changed = append(changed, "resolvedAt")
		}
	} else if c.ResolvedAt != nil {
		set["resolvedAt"] = nil
		changed = append(changed, "resolvedAt")
	}
	if actor.Kind == models.KindWorker {
		set["assignedWorker"] = actor.ID
		changed = append(changed, "assignedWorker")
		if c.BlockID == nil && actor.BlockID != nil {
			set["block"] = *actor.BlockID
			changed = append(changed, "block")
		}
	}

	updated, err := s.Store.UpdateComplaint(ctx, c.ID, set)
	if errors.Is(err, storage.ErrNotFound) {
		return models.ComplaintView{}, ErrNotFound
	}
	if err != nil {
		s.Activity.Log(ctx, activity.Entry{
			Actor: actor, Action: activity.ActionComplaintStatus,
			TargetType: "complaint", TargetID: c.ID.Hex(), Success: false,
			Details: map[string]interface{}{"from": from, "to": status, "error": err.Error()},
			Meta:    meta,
		})
		return models.ComplaintView{}, fmt.Errorf("update complaint: %w", err)
	}

	metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	s.Activity.Log(ctx, activity.Entry{
		Actor:      actor,
		Action:     activity.ActionComplaintStatus,
		TargetType: "complaint",
		TargetID:   c.ID.Hex(),
		Success:    true,
		Details:    map[string]interface{}{"from": from, "to": status},
		Changed:    changed,
		Meta:       meta,
	})

	view := s.views(ctx, []models.Complaint{*updated})[0]
	s.publish(ctx, models.EventComplaintStatusChanged, actor, updated, view)
	if from != status {
		s.Notifier.StatusChanged(ctx, view)
	}
	return view, nil
}

// AssignBlock places a complaint in a block, or clears it when blockID is
// empty. A block tied to a department only accepts that department's
// complaints.
func (s *Service) AssignBlock(ctx context.Context, actor *models.Principal, id, blockID string, meta activity.RequestMeta) (models.ComplaintView, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return models.ComplaintView{}, err
	}

	set := bson.M{"block": nil}
	if blockID = strings.TrimSpace(blockID); blockID != "" {
		oid, err := primitive.ObjectIDFromHex(blockID)
		if err != nil {
			return models.ComplaintView{}, ErrBlockNotFound
		}
		b, err := s.Store.GetBlockByID(ctx, oid)
		if errors.Is(err, storage.ErrNotFound) {
			return models.ComplaintView{}, ErrBlockNotFound
		}
		if err != nil {
			return models.ComplaintView{}, fmt.Errorf("load block: %w", err)
		}
		if b.DepartmentID != nil && *b.DepartmentID != c.DepartmentID {
			return models.ComplaintView{}, ErrBlockMismatch
		}
		set["block"] = b.ID
	}

	updated, err := s.Store.UpdateComplaint(ctx, c.ID, set)
	if errors.Is(err, storage.ErrNotFound) {
		return models.ComplaintView{}, ErrNotFound
	}
	if err != nil {
		return models.ComplaintView{}, fmt.Errorf("update complaint: %w", err)
	}

	s.Activity.Log(ctx, activity.Entry{
		Actor:      actor,
		Action:     activity.ActionComplaintBlock,
		TargetType: "complaint",
		TargetID:   c.ID.Hex(),
		Success:    true,
		Details:    map[string]interface{}{"block": blockID},
		Changed:    []string{"block"},
		Meta:       meta,
	})
	return s.views(ctx, []models.Complaint{*updated})[0], nil
}
