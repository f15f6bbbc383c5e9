package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUser puts an authenticated user into the request context
func WithUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), user))
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPatient() *models.User {
	return &models.User{ID: "patient-1", Email: "pat@example.com", Name: "Pat", Roles: []models.Role{models.RolePatient}}
}

func testResearcher() *models.User {
	return &models.User{ID: "researcher-1", Email: "res@example.com", Name: "Dr. Res", Roles: []models.Role{models.RoleResearcher}}
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	CreateSessionFunc func(ctx context.Context, sessionID string, meta services.RequestMeta) (*services.LoginResult, error)
	LogoutFunc        func(ctx context.Context, token string, user *models.User, meta services.RequestMeta) error
	AssignRoleFunc    func(ctx context.Context, user *models.User, role string, meta services.RequestMeta) (*models.User, error)
	CheckProfileFunc  func(ctx context.Context, user *models.User) (*services.ProfileStatus, error)
}

func (m *MockAuthService) CreateSession(ctx context.Context, sessionID string, meta services.RequestMeta) (*services.LoginResult, error) {
	if m.CreateSessionFunc == nil {
		return nil, models.ErrSessionExchange
	}
	return m.CreateSessionFunc(ctx, sessionID, meta)
}

func (m *MockAuthService) Logout(ctx context.Context, token string, user *models.User, meta services.RequestMeta) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, token, user, meta)
}

func (m *MockAuthService) AssignRole(ctx context.Context, user *models.User, role string, meta services.RequestMeta) (*models.User, error) {
	if m.AssignRoleFunc == nil {
		return nil, models.ErrInvalidRole
	}
	return m.AssignRoleFunc(ctx, user, role, meta)
}

func (m *MockAuthService) CheckProfile(ctx context.Context, user *models.User) (*services.ProfileStatus, error) {
	if m.CheckProfileFunc == nil {
		return &services.ProfileStatus{Roles: user.Roles, Profiles: map[string]bool{}}, nil
	}
	return m.CheckProfileFunc(ctx, user)
}

// MockProfileService implements ProfileServiceInterface for testing
type MockProfileService struct {
	GetPatientProfileFunc     func(ctx context.Context, userID string) (*models.PatientProfile, error)
	SavePatientProfileFunc    func(ctx context.Context, user *models.User, in services.PatientProfileInput) (*models.PatientProfile, error)
	GetResearcherProfileFunc  func(ctx context.Context, userID string) (*models.ResearcherProfile, error)
	SaveResearcherProfileFunc func(ctx context.Context, user *models.User, in services.ResearcherProfileInput) (*models.ResearcherProfile, error)
}

func (m *MockProfileService) GetPatientProfile(ctx context.Context, userID string) (*models.PatientProfile, error) {
	if m.GetPatientProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetPatientProfileFunc(ctx, userID)
}

func (m *MockProfileService) SavePatientProfile(ctx context.Context, user *models.User, in services.PatientProfileInput) (*models.PatientProfile, error) {
	if m.SavePatientProfileFunc == nil {
		return nil, models.ErrForbidden
	}
	return m.SavePatientProfileFunc(ctx, user, in)
}

func (m *MockProfileService) GetResearcherProfile(ctx context.Context, userID string) (*models.ResearcherProfile, error) {
	if m.GetResearcherProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetResearcherProfileFunc(ctx, userID)
}

func (m *MockProfileService) SaveResearcherProfile(ctx context.Context, user *models.User, in services.ResearcherProfileInput) (*models.ResearcherProfile, error) {
	if m.SaveResearcherProfileFunc == nil {
		return nil, models.ErrForbidden
	}
	return m.SaveResearcherProfileFunc(ctx, user, in)
}

// MockDiscoveryService implements DiscoveryServiceInterface for testing
type MockDiscoveryService struct {
	SearchFunc            func(ctx context.Context, user *models.User, query, location string) (*services.SearchResults, error)
	PatientOverviewFunc   func(ctx context.Context, user *models.User) (*services.Overview, error)
	ResearcherDetailsFunc func(ctx context.Context, researcherID string) (*services.ResearcherDetails, error)
}

func (m *MockDiscoveryService) Search(ctx context.Context, user *models.User, query, location string) (*services.SearchResults, error) {
	if m.SearchFunc == nil {
		return &services.SearchResults{}, nil
	}
	return m.SearchFunc(ctx, user, query, location)
}

func (m *MockDiscoveryService) PatientOverview(ctx context.Context, user *models.User) (*services.Overview, error) {
	if m.PatientOverviewFunc == nil {
		return &services.Overview{}, nil
	}
	return m.PatientOverviewFunc(ctx, user)
}

func (m *MockDiscoveryService) ResearcherDetails(ctx context.Context, researcherID string) (*services.ResearcherDetails, error) {
	if m.ResearcherDetailsFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ResearcherDetailsFunc(ctx, researcherID)
}

// MockResearchService implements ResearchServiceInterface for testing
type MockResearchService struct {
	CreateTrialFunc       func(ctx context.Context, user *models.User, in services.TrialInput) (*models.ClinicalTrial, error)
	ListOwnTrialsFunc     func(ctx context.Context, userID string) ([]*models.ClinicalTrial, error)
	ListTrialsFunc        func(ctx context.Context, f models.TrialFilter) ([]*models.ClinicalTrial, error)
	ListPublicationsFunc  func(ctx context.Context, f models.PublicationFilter) ([]*models.Publication, error)
	ListExpertsFunc       func(ctx context.Context, f models.ExpertFilter) ([]*services.ExpertListing, error)
	ListCollaboratorsFunc func(ctx context.Context, user *models.User, specialty string) ([]*models.ResearcherProfile, error)
}

func (m *MockResearchService) CreateTrial(ctx context.Context, user *models.User, in services.TrialInput) (*models.ClinicalTrial, error) {
	if m.CreateTrialFunc == nil {
		return nil, models.ErrForbidden
	}
	return m.CreateTrialFunc(ctx, user, in)
}

func (m *MockResearchService) ListOwnTrials(ctx context.Context, userID string) ([]*models.ClinicalTrial, error) {
	if m.ListOwnTrialsFunc == nil {
		return nil, nil
	}
	return m.ListOwnTrialsFunc(ctx, userID)
}

func (m *MockResearchService) ListTrials(ctx context.Context, f models.TrialFilter) ([]*models.ClinicalTrial, error) {
	if m.ListTrialsFunc == nil {
		return nil, nil
	}
	return m.ListTrialsFunc(ctx, f)
}

func (m *MockResearchService) ListPublications(ctx context.Context, f models.PublicationFilter) ([]*models.Publication, error) {
	if m.ListPublicationsFunc == nil {
		return nil, nil
	}
	return m.ListPublicationsFunc(ctx, f)
}

func (m *MockResearchService) ListExperts(ctx context.Context, f models.ExpertFilter) ([]*services.ExpertListing, error) {
	if m.ListExpertsFunc == nil {
		return nil, nil
	}
	return m.ListExpertsFunc(ctx, f)
}

func (m *MockResearchService) ListCollaborators(ctx context.Context, user *models.User, specialty string) ([]*models.ResearcherProfile, error) {
	if m.ListCollaboratorsFunc == nil {
		return nil, nil
	}
	return m.ListCollaboratorsFunc(ctx, user, specialty)
}

// MockFavoriteService implements FavoriteServiceInterface for testing
type MockFavoriteService struct {
	AddFunc    func(ctx context.Context, userID string, in services.FavoriteInput) (*models.Favorite, error)
	ListFunc   func(ctx context.Context, userID string) ([]*services.FavoriteEntry, error)
	RemoveFunc func(ctx context.Context, userID, favoriteID string) error
}

func (m *MockFavoriteService) Add(ctx context.Context, userID string, in services.FavoriteInput) (*models.Favorite, error) {
	if m.AddFunc == nil {
		return nil, models.ErrBadRequest
	}
	return m.AddFunc(ctx, userID, in)
}

func (m *MockFavoriteService) List(ctx context.Context, userID string) ([]*services.FavoriteEntry, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, userID)
}

func (m *MockFavoriteService) Remove(ctx context.Context, userID, favoriteID string) error {
	if m.RemoveFunc == nil {
		return models.ErrNotFound
	}
	return m.RemoveFunc(ctx, userID, favoriteID)
}

// MockAppointmentService implements AppointmentServiceInterface for testing
type MockAppointmentService struct {
	RequestFunc           func(ctx context.Context, patient *models.User, in services.AppointmentInput) (*models.Appointment, error)
	ListFunc              func(ctx context.Context, user *models.User) ([]*models.Appointment, error)
	UpdateStatusFunc      func(ctx context.Context, researcher *models.User, appointmentID, status string) (*models.Appointment, error)
	CreateReviewFunc      func(ctx context.Context, patient *models.User, in services.ReviewInput) (*models.Review, error)
	ResearcherReviewsFunc func(ctx context.Context, researcherID string) (*services.ResearcherReviews, error)
}

func (m *MockAppointmentService) Request(ctx context.Context, patient *models.User, in services.AppointmentInput) (*models.Appointment, error) {
	if m.RequestFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RequestFunc(ctx, patient, in)
}

func (m *MockAppointmentService) List(ctx context.Context, user *models.User) ([]*models.Appointment, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, user)
}

func (m *MockAppointmentService) UpdateStatus(ctx context.Context, researcher *models.User, appointmentID, status string) (*models.Appointment, error) {
	if m.UpdateStatusFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateStatusFunc(ctx, researcher, appointmentID, status)
}

func (m *MockAppointmentService) CreateReview(ctx context.Context, patient *models.User, in services.ReviewInput) (*models.Review, error) {
	if m.CreateReviewFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.CreateReviewFunc(ctx, patient, in)
}

func (m *MockAppointmentService) ResearcherReviews(ctx context.Context, researcherID string) (*services.ResearcherReviews, error) {
	if m.ResearcherReviewsFunc == nil {
		return &services.ResearcherReviews{}, nil
	}
	return m.ResearcherReviewsFunc(ctx, researcherID)
}

// MockNotificationService implements NotificationServiceInterface for testing
type MockNotificationService struct {
	ListFunc        func(ctx context.Context, userID string) ([]*models.Notification, error)
	MarkReadFunc    func(ctx context.Context, userID, notificationID string) error
	UnreadCountFunc func(ctx context.Context, userID string) (int, error)
}

func (m *MockNotificationService) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, userID)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if m.MarkReadFunc == nil {
		return nil
	}
	return m.MarkReadFunc(ctx, userID, notificationID)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if m.UnreadCountFunc == nil {
		return 0, nil
	}
	return m.UnreadCountFunc(ctx, userID)
}

// MockForumService implements ForumServiceInterface for testing
type MockForumService struct {
	ListFunc       func(ctx context.Context) ([]*models.Forum, error)
	CreateFunc     func(ctx context.Context, researcher *models.User, in services.ForumInput) (*models.Forum, error)
	DeleteFunc     func(ctx context.Context, user *models.User, forumID string) error
	ListPostsFunc  func(ctx context.Context, forumID string) ([]*models.ForumPost, error)
	CreatePostFunc func(ctx context.Context, user *models.User, in services.PostInput) (*models.ForumPost, error)
	JoinFunc       func(ctx context.Context, user *models.User, forumID string) (*models.ForumMembership, bool, error)
	LeaveFunc      func(ctx context.Context, user *models.User, forumID string) error
	MembershipFunc func(ctx context.Context, user *models.User, forumID string) (*services.MembershipStatus, error)
	MembersFunc    func(ctx context.Context, forumID string) ([]*models.ForumMembership, error)
}

func (m *MockForumService) List(ctx context.Context) ([]*models.Forum, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx)
}

func (m *MockForumService) Create(ctx context.Context, researcher *models.User, in services.ForumInput) (*models.Forum, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrForbidden
	}
	return m.CreateFunc(ctx, researcher, in)
}

func (m *MockForumService) Delete(ctx context.Context, user *models.User, forumID string) error {
	if m.DeleteFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteFunc(ctx, user, forumID)
}

func (m *MockForumService) ListPosts(ctx context.Context, forumID string) ([]*models.ForumPost, error) {
	if m.ListPostsFunc == nil {
		return nil, nil
	}
	return m.ListPostsFunc(ctx, forumID)
}

func (m *MockForumService) CreatePost(ctx context.Context, user *models.User, in services.PostInput) (*models.ForumPost, error) {
	if m.CreatePostFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.CreatePostFunc(ctx, user, in)
}

func (m *MockForumService) Join(ctx context.Context, user *models.User, forumID string) (*models.ForumMembership, bool, error) {
	if m.JoinFunc == nil {
		return nil, false, models.ErrNotFound
	}
	return m.JoinFunc(ctx, user, forumID)
}

func (m *MockForumService) Leave(ctx context.Context, user *models.User, forumID string) error {
	if m.LeaveFunc == nil {
		return models.ErrNotFound
	}
	return m.LeaveFunc(ctx, user, forumID)
}

func (m *MockForumService) Membership(ctx context.Context, user *models.User, forumID string) (*services.MembershipStatus, error) {
	if m.MembershipFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.MembershipFunc(ctx, user, forumID)
}

func (m *MockForumService) Members(ctx context.Context, forumID string) ([]*models.ForumMembership, error) {
	if m.MembersFunc == nil {
		return nil, nil
	}
	return m.MembersFunc(ctx, forumID)
}

// MockQAService implements QAServiceInterface for testing
type MockQAService struct {
	AskFunc    func(ctx context.Context, patient *models.User, in services.QuestionInput) (*models.Question, error)
	ListFunc   func(ctx context.Context, condition string) ([]*models.Question, error)
	GetFunc    func(ctx context.Context, id string) (*services.QuestionThread, error)
	AnswerFunc func(ctx context.Context, researcher *models.User, in services.AnswerInput) (*models.Answer, error)
	VoteFunc   func(ctx context.Context, user *models.User, answerID, voteType string) (*models.VoteTally, error)
}

func (m *MockQAService) Ask(ctx context.Context, patient *models.User, in services.QuestionInput) (*models.Question, error) {
	if m.AskFunc == nil {
		return nil, models.ErrForbidden
	}
	return m.AskFunc(ctx, patient, in)
}

func (m *MockQAService) List(ctx context.Context, condition string) ([]*models.Question, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, condition)
}

func (m *MockQAService) Get(ctx context.Context, id string) (*services.QuestionThread, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockQAService) Answer(ctx context.Context, researcher *models.User, in services.AnswerInput) (*models.Answer, error) {
	if m.AnswerFunc == nil {
		return nil, models.ErrForbidden
	}
	return m.AnswerFunc(ctx, researcher, in)
}

func (m *MockQAService) Vote(ctx context.Context, user *models.User, answerID, voteType string) (*models.VoteTally, error) {
	if m.VoteFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.VoteFunc(ctx, user, answerID, voteType)
}

// MockChatService implements ChatServiceInterface for testing
type MockChatService struct {
	RoomsFunc    func(ctx context.Context, user *models.User) ([]*services.ChatRoomView, error)
	MessagesFunc func(ctx context.Context, user *models.User, roomID string) ([]*models.ChatMessage, error)
	SendFunc     func(ctx context.Context, user *models.User, roomID string, in services.MessageInput) (*models.ChatMessage, error)
	CloseFunc    func(ctx context.Context, user *models.User, roomID string) error
}

func (m *MockChatService) Rooms(ctx context.Context, user *models.User) ([]*services.ChatRoomView, error) {
	if m.RoomsFunc == nil {
		return nil, nil
	}
	return m.RoomsFunc(ctx, user)
}

func (m *MockChatService) Messages(ctx context.Context, user *models.User, roomID string) ([]*models.ChatMessage, error) {
	if m.MessagesFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.MessagesFunc(ctx, user, roomID)
}

func (m *MockChatService) Send(ctx context.Context, user *models.User, roomID string, in services.MessageInput) (*models.ChatMessage, error) {
	if m.SendFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SendFunc(ctx, user, roomID, in)
}

func (m *MockChatService) Close(ctx context.Context, user *models.User, roomID string) error {
	if m.CloseFunc == nil {
		return models.ErrNotFound
	}
	return m.CloseFunc(ctx, user, roomID)
}

// MockAdvisorService implements AdvisorServiceInterface for testing
type MockAdvisorService struct {
	AdviseFunc func(ctx context.Context, disease string) (*services.TreatmentAdvice, error)
}

func (m *MockAdvisorService) Advise(ctx context.Context, disease string) (*services.TreatmentAdvice, error) {
	if m.AdviseFunc == nil {
		return nil, models.ErrAdvisorUnavailable
	}
	return m.AdviseFunc(ctx, disease)
}
