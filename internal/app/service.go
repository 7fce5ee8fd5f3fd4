package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"pathos/api/internal/auth"
	"pathos/api/internal/authpw"
	"pathos/api/internal/config"
	"pathos/api/internal/media"
	"pathos/api/internal/search"
	"pathos/api/internal/store"
	"pathos/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Username     string
	Name         string
	JTI          string
	ExpiresAt    time.Time
}

// dataStore is everything the service needs from Postgres. Milestone, task,
// entry and time-entry methods all take the owning user id; the store folds
// it into the WHERE clause so a foreign row reads as missing.
type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, userID string) (store.User, error)
	UpdateUserProfile(ctx context.Context, userID string, name, bio string) (store.User, error)
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	CreatePassion(ctx context.Context, p store.Passion) (store.Passion, error)
	GetPassion(ctx context.Context, passionID string) (store.Passion, error)
	GetPassionBySlug(ctx context.Context, slug string) (store.Passion, error)
	PassionSlugExists(ctx context.Context, slug string) (bool, error)
	ListPassions(ctx context.Context) ([]store.Passion, error)
	JoinPassion(ctx context.Context, userID, passionID string) error
	LeavePassion(ctx context.Context, userID, passionID string) (bool, error)
	HasUserPassion(ctx context.Context, userID, passionID string) (bool, error)
	ListUserPassions(ctx context.Context, userID string) ([]store.Passion, error)

	CreateProject(ctx context.Context, p store.Project) (store.Project, error)
	GetProject(ctx context.Context, projectID string) (store.Project, error)
	GetOwnedProject(ctx context.Context, ownerID, projectID string) (store.Project, error)
	ListUserProjects(ctx context.Context, ownerID string, f store.ProjectFilter, limit, offset int) ([]store.Project, error)
	UpdateProject(ctx context.Context, p store.Project) (store.Project, error)
	DeleteProject(ctx context.Context, ownerID, projectID string) (bool, error)

	CreateMilestone(ctx context.Context, m store.Milestone) (store.Milestone, error)
	GetMilestone(ctx context.Context, userID, milestoneID string) (store.Milestone, error)
	GetMilestoneDetail(ctx context.Context, userID, milestoneID string) (store.MilestoneDetail, error)
	ListMilestones(ctx context.Context, userID string, f store.MilestoneFilter, limit, offset int) ([]store.Milestone, error)
	UpdateMilestone(ctx context.Context, m store.Milestone) (store.Milestone, error)
	DeleteMilestoneCascade(ctx context.Context, userID, milestoneID string) (bool, error)

	CreateTask(ctx context.Context, t store.Task) (store.Task, error)
	GetTask(ctx context.Context, userID, taskID string) (store.Task, error)
	ListTasks(ctx context.Context, userID string, f store.TaskFilter, limit, offset int) ([]store.Task, error)
	UpdateTask(ctx context.Context, t store.Task) (store.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) (bool, error)

	CreateEntry(ctx context.Context, e store.Entry) (store.Entry, error)
	GetEntry(ctx context.Context, entryID string) (store.Entry, error)
	ListEntries(ctx context.Context, ownerID string, f store.EntryFilter, limit, offset int) ([]store.Entry, error)
	UpdateEntry(ctx context.Context, e store.Entry) (store.Entry, error)
	DeleteEntry(ctx context.Context, userID, entryID string) (bool, error)

	CreateTimeEntry(ctx context.Context, te store.TimeEntry) (store.TimeEntry, error)
	ListTimeEntries(ctx context.Context, userID string, f store.TimeEntryFilter, limit, offset int) ([]store.TimeEntry, error)
	TotalTrackedMinutes(ctx context.Context, userID string, f store.TimeEntryFilter) (int, error)
	DeleteTimeEntry(ctx context.Context, userID, timeEntryID string) (bool, error)
}

// SessionStore holds refresh tokens, keyed by hash. Redis in production,
// Postgres when Redis is not configured.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions SessionStore
	authpw   *authpw.Service
	search   *search.Service
	media    *media.Service
	logger   *zap.Logger
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions SessionStore, searchSvc *search.Service, mediaSvc *media.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		authpw:   authpw.NewService(dataStore),
		search:   searchSvc,
		media:    mediaSvc,
		logger:   logger,
	}
}

// defaultPassions is the curated taxonomy seeded on first boot. Users extend
// it with custom passions.
var defaultPassions = []struct {
	Name  string
	Icon  string
	Color string
}{
	{"Art & Illustration", "palette", "#e76f51"},
	{"Music", "music", "#9b5de5"},
	{"Writing", "pen", "#f4a261"},
	{"Photography", "camera", "#2a9d8f"},
	{"Gardening", "sprout", "#588157"},
	{"Cooking & Baking", "chef-hat", "#e63946"},
	{"Woodworking", "hammer", "#8d6e63"},
	{"Fitness", "dumbbell", "#457b9d"},
	{"Electronics & Making", "cpu", "#606c38"},
	{"Games & Game Dev", "gamepad", "#3a86ff"},
}

// Bootstrap seeds the global passion taxonomy on an empty database and
// rebuilds the search index when Meilisearch is available.
func (s *Service) Bootstrap(ctx context.Context) error {
	passions, err := s.store.ListPassions(ctx)
	if err != nil {
		return err
	}
	if len(passions) == 0 {
		for _, seed := range defaultPassions {
			if _, err := s.store.CreatePassion(ctx, store.Passion{
				ID:    util.NewID("pas"),
				Name:  seed.Name,
				Slug:  util.Slugify(seed.Name),
				Icon:  seed.Icon,
				Color: seed.Color,
			}); err != nil {
				return err
			}
		}
		s.logger.Info("seeded default passions", zap.Int("count", len(defaultPassions)))
	}

	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SignUp registers a user and opens a session.
func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.authpw.SignUp(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, authpw.ErrEmailTaken):
			return Session{}, conflict("EMAIL_EXISTS", "Email already registered")
		case errors.Is(err, authpw.ErrUsernameTaken):
			return Session{}, conflict("USERNAME_EXISTS", "Username already taken")
		case errors.Is(err, authpw.ErrWeakPassword), errors.Is(err, authpw.ErrMissingFields):
			return Session{}, validationError(err.Error())
		}
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// SignIn authenticates and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.authpw.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token and issues a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.Username,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Username:     user.Username,
		Name:         user.Name,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Name:      user.Name,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// Profile returns the caller's own profile.
func (s *Service) Profile(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userPayload(user), nil
}

// UpdateProfile updates the caller's display name and bio.
func (s *Service) UpdateProfile(ctx context.Context, userID string, name, bio Optional[string]) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	newName := user.Name
	if name.Set && name.Valid {
		newName = name.Value
	}
	newBio := user.Bio
	if bio.Set {
		newBio = "" // explicit null clears
		if bio.Valid {
			newBio = bio.Value
		}
	}
	updated, err := s.store.UpdateUserProfile(ctx, userID, newName, newBio)
	if err != nil {
		return nil, err
	}
	return userPayload(updated), nil
}

func userPayload(u store.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"name":      u.Name,
		"email":     u.Email,
		"bio":       u.Bio,
		"createdAt": u.CreatedAt,
	}
}

// Search queries the caller's projects and entries.
func (s *Service) Search(ctx context.Context, userID, text, filterType, passionID string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:            text,
		UserID:          userID,
		FilterType:      search.ResultType(filterType),
		FilterPassionID: passionID,
		Limit:           limit,
		Offset:          offset,
	}), nil
}

// PresignMediaUpload hands out a presigned PUT URL for entry media.
func (s *Service) PresignMediaUpload(ctx context.Context, userID, contentType string) (media.Upload, error) {
	if s.media == nil {
		return media.Upload{}, domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage not configured", nil)
	}
	upload, err := s.media.PresignUpload(ctx, userID, contentType)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedType) {
			return media.Upload{}, validationError("unsupported media content type")
		}
		return media.Upload{}, err
	}
	return upload, nil
}

// RemoveMediaUpload deletes an uploaded object, for abandoned or replaced
// uploads. Keys are namespaced by owner, so callers can only remove objects
// under their own prefix.
func (s *Service) RemoveMediaUpload(ctx context.Context, userID, objectKey string) error {
	if s.media == nil {
		return domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage not configured", nil)
	}
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" || !strings.HasPrefix(objectKey, userID+"/") {
		return notFound("media object")
	}
	return s.media.RemoveObject(ctx, objectKey)
}
