package services

import (
	"context"

	"github.com/curalink/curalink/internal/background"
	"github.com/curalink/curalink/internal/integrations/identity"
	"github.com/curalink/curalink/internal/integrations/pubmed"
	"github.com/curalink/curalink/internal/integrations/trials"
	"github.com/curalink/curalink/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc     func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc  func(ctx context.Context, email string) (*models.User, error)
	CreateFunc      func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateRolesFunc func(ctx context.Context, id string, roles []models.Role) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateRoles(ctx context.Context, id string, roles []models.Role) (*models.User, error) {
	if m.UpdateRolesFunc != nil {
		return m.UpdateRolesFunc(ctx, id, roles)
	}
	return nil, models.ErrInternalServer
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc        func(ctx context.Context, session *models.Session) error
	DeleteByTokenFunc func(ctx context.Context, token string) error
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if m.DeleteByTokenFunc != nil {
		return m.DeleteByTokenFunc(ctx, token)
	}
	return nil
}

// MockIdentityExchanger implements IdentityExchanger for testing
type MockIdentityExchanger struct {
	ExchangeFunc func(ctx context.Context, sessionID string) (*identity.Identity, error)
}

func (m *MockIdentityExchanger) Exchange(ctx context.Context, sessionID string) (*identity.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, sessionID)
	}
	return nil, identity.ErrExchangeFailed
}

// MockProfileRepository implements ProfileRepository for testing
type MockProfileRepository struct {
	GetPatientProfileFunc     func(ctx context.Context, userID string) (*models.PatientProfile, error)
	UpsertPatientProfileFunc  func(ctx context.Context, p *models.PatientProfile) error
	GetResearcherProfileFunc  func(ctx context.Context, userID string) (*models.ResearcherProfile, error)
	ListResearchersFunc       func(ctx context.Context, excludeUserID, specialty string, limit int) ([]*models.ResearcherProfile, error)
	SaveResearcherProfileFunc func(ctx context.Context, p *models.ResearcherProfile, expert *models.HealthExpert) error
	GetExpertByIDFunc         func(ctx context.Context, id string) (*models.HealthExpert, error)
	GetExpertByUserIDFunc     func(ctx context.Context, userID string) (*models.HealthExpert, error)
	ListExpertsFunc           func(ctx context.Context, f models.ExpertFilter) ([]*models.HealthExpert, error)
}

func (m *MockProfileRepository) GetPatientProfile(ctx context.Context, userID string) (*models.PatientProfile, error) {
	if m.GetPatientProfileFunc != nil {
		return m.GetPatientProfileFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) UpsertPatientProfile(ctx context.Context, p *models.PatientProfile) error {
	if m.UpsertPatientProfileFunc != nil {
		return m.UpsertPatientProfileFunc(ctx, p)
	}
	return nil
}

func (m *MockProfileRepository) GetResearcherProfile(ctx context.Context, userID string) (*models.ResearcherProfile, error) {
	if m.GetResearcherProfileFunc != nil {
		return m.GetResearcherProfileFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) ListResearchers(ctx context.Context, excludeUserID, specialty string, limit int) ([]*models.ResearcherProfile, error) {
	if m.ListResearchersFunc != nil {
		return m.ListResearchersFunc(ctx, excludeUserID, specialty, limit)
	}
	return []*models.ResearcherProfile{}, nil
}

func (m *MockProfileRepository) SaveResearcherProfile(ctx context.Context, p *models.ResearcherProfile, expert *models.HealthExpert) error {
	if m.SaveResearcherProfileFunc != nil {
		return m.SaveResearcherProfileFunc(ctx, p, expert)
	}
	return nil
}

func (m *MockProfileRepository) GetExpertByID(ctx context.Context, id string) (*models.HealthExpert, error) {
	if m.GetExpertByIDFunc != nil {
		return m.GetExpertByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) GetExpertByUserID(ctx context.Context, userID string) (*models.HealthExpert, error) {
	if m.GetExpertByUserIDFunc != nil {
		return m.GetExpertByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) ListExperts(ctx context.Context, f models.ExpertFilter) ([]*models.HealthExpert, error) {
	if m.ListExpertsFunc != nil {
		return m.ListExpertsFunc(ctx, f)
	}
	return []*models.HealthExpert{}, nil
}

// MockTrialRepository implements TrialRepository for testing
type MockTrialRepository struct {
	CreateFunc          func(ctx context.Context, t *models.ClinicalTrial) (*models.ClinicalTrial, error)
	UpsertExternalFunc  func(ctx context.Context, t *models.ClinicalTrial) (*models.ClinicalTrial, error)
	GetByIDFunc         func(ctx context.Context, id string) (*models.ClinicalTrial, error)
	GetByExternalIDFunc func(ctx context.Context, externalID string) (*models.ClinicalTrial, error)
	ListFunc            func(ctx context.Context, f models.TrialFilter) ([]*models.ClinicalTrial, error)
}

func (m *MockTrialRepository) Create(ctx context.Context, t *models.ClinicalTrial) (*models.ClinicalTrial, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	return nil, models.ErrInternalServer
}

func (m *MockTrialRepository) UpsertExternal(ctx context.Context, t *models.ClinicalTrial) (*models.ClinicalTrial, error) {
	if m.UpsertExternalFunc != nil {
		return m.UpsertExternalFunc(ctx, t)
	}
	return nil, models.ErrInternalServer
}

func (m *MockTrialRepository) GetByID(ctx context.Context, id string) (*models.ClinicalTrial, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockTrialRepository) GetByExternalID(ctx context.Context, externalID string) (*models.ClinicalTrial, error) {
	if m.GetByExternalIDFunc != nil {
		return m.GetByExternalIDFunc(ctx, externalID)
	}
	return nil, models.ErrNotFound
}

func (m *MockTrialRepository) List(ctx context.Context, f models.TrialFilter) ([]*models.ClinicalTrial, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return []*models.ClinicalTrial{}, nil
}

// MockPublicationRepository implements PublicationRepository for testing
type MockPublicationRepository struct {
	UpsertExternalFunc  func(ctx context.Context, p *models.Publication) (*models.Publication, error)
	GetByIDFunc         func(ctx context.Context, id string) (*models.Publication, error)
	GetByExternalIDFunc func(ctx context.Context, externalID string) (*models.Publication, error)
	ListFunc            func(ctx context.Context, f models.PublicationFilter) ([]*models.Publication, error)
}

func (m *MockPublicationRepository) UpsertExternal(ctx context.Context, p *models.Publication) (*models.Publication, error) {
	if m.UpsertExternalFunc != nil {
		return m.UpsertExternalFunc(ctx, p)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPublicationRepository) GetByID(ctx context.Context, id string) (*models.Publication, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPublicationRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Publication, error) {
	if m.GetByExternalIDFunc != nil {
		return m.GetByExternalIDFunc(ctx, externalID)
	}
	return nil, models.ErrNotFound
}

func (m *MockPublicationRepository) List(ctx context.Context, f models.PublicationFilter) ([]*models.Publication, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return []*models.Publication{}, nil
}

// MockFavoriteRepository implements FavoriteRepository for testing
type MockFavoriteRepository struct {
	CreateFunc     func(ctx context.Context, f *models.Favorite) error
	ListByUserFunc func(ctx context.Context, userID string, limit int) ([]*models.Favorite, error)
	DeleteFunc     func(ctx context.Context, id, userID string) error
}

func (m *MockFavoriteRepository) Create(ctx context.Context, f *models.Favorite) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, f)
	}
	return nil
}

func (m *MockFavoriteRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Favorite, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit)
	}
	return []*models.Favorite{}, nil
}

func (m *MockFavoriteRepository) Delete(ctx context.Context, id, userID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, userID)
	}
	return nil
}

// MockAppointmentRepository implements AppointmentRepository for testing
type MockAppointmentRepository struct {
	CreateFunc       func(ctx context.Context, a *models.Appointment) (*models.Appointment, error)
	GetByIDFunc      func(ctx context.Context, id string) (*models.Appointment, error)
	ListForUserFunc  func(ctx context.Context, userID string, limit int) ([]*models.Appointment, error)
	UpdateStatusFunc func(ctx context.Context, id, researcherID, status string) (*models.Appointment, error)
}

func (m *MockAppointmentRepository) Create(ctx context.Context, a *models.Appointment) (*models.Appointment, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, a)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAppointmentRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Appointment, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID, limit)
	}
	return []*models.Appointment{}, nil
}

func (m *MockAppointmentRepository) UpdateStatus(ctx context.Context, id, researcherID, status string) (*models.Appointment, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, researcherID, status)
	}
	return nil, models.ErrNotFound
}

// MockReviewRepository implements ReviewRepository for testing
type MockReviewRepository struct {
	CreateFunc           func(ctx context.Context, rv *models.Review) error
	ListByResearcherFunc func(ctx context.Context, researcherID string, limit int) ([]*models.Review, error)
	SummariesFunc        func(ctx context.Context, researcherIDs []string) (map[string]models.RatingSummary, error)
}

func (m *MockReviewRepository) Create(ctx context.Context, rv *models.Review) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, rv)
	}
	return nil
}

func (m *MockReviewRepository) ListByResearcher(ctx context.Context, researcherID string, limit int) ([]*models.Review, error) {
	if m.ListByResearcherFunc != nil {
		return m.ListByResearcherFunc(ctx, researcherID, limit)
	}
	return []*models.Review{}, nil
}

func (m *MockReviewRepository) Summaries(ctx context.Context, researcherIDs []string) (map[string]models.RatingSummary, error) {
	if m.SummariesFunc != nil {
		return m.SummariesFunc(ctx, researcherIDs)
	}
	return map[string]models.RatingSummary{}, nil
}

// MockNotificationRepository implements NotificationRepository for testing
type MockNotificationRepository struct {
	CreateFunc      func(ctx context.Context, n *models.Notification) error
	ListByUserFunc  func(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkReadFunc    func(ctx context.Context, id, userID string) error
	CountUnreadFunc func(ctx context.Context, userID string) (int, error)
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	return nil
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit)
	}
	return []*models.Notification{}, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, id, userID)
	}
	return nil
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx, userID)
	}
	return 0, nil
}

// MockForumRepository implements ForumRepository for testing
type MockForumRepository struct {
	ListFunc               func(ctx context.Context) ([]*models.Forum, error)
	GetByIDFunc            func(ctx context.Context, id string) (*models.Forum, error)
	CreateFunc             func(ctx context.Context, f *models.Forum) (*models.Forum, error)
	DeleteFunc             func(ctx context.Context, id string) error
	ListPostsFunc          func(ctx context.Context, forumID string, limit int) ([]*models.ForumPost, error)
	CreatePostFunc         func(ctx context.Context, p *models.ForumPost) error
	DeletePostsByForumFunc func(ctx context.Context, forumID string) (int64, error)
	CreateMembershipFunc   func(ctx context.Context, m *models.ForumMembership) error
	GetMembershipFunc      func(ctx context.Context, forumID, userID string) (*models.ForumMembership, error)
	DeleteMembershipFunc   func(ctx context.Context, forumID, userID string) error
	ListMembersFunc        func(ctx context.Context, forumID string, limit int) ([]*models.ForumMembership, error)
}

func (m *MockForumRepository) List(ctx context.Context) ([]*models.Forum, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Forum{}, nil
}

func (m *MockForumRepository) GetByID(ctx context.Context, id string) (*models.Forum, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockForumRepository) Create(ctx context.Context, f *models.Forum) (*models.Forum, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, f)
	}
	return nil, models.ErrInternalServer
}

func (m *MockForumRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockForumRepository) ListPosts(ctx context.Context, forumID string, limit int) ([]*models.ForumPost, error) {
	if m.ListPostsFunc != nil {
		return m.ListPostsFunc(ctx, forumID, limit)
	}
	return []*models.ForumPost{}, nil
}

func (m *MockForumRepository) CreatePost(ctx context.Context, p *models.ForumPost) error {
	if m.CreatePostFunc != nil {
		return m.CreatePostFunc(ctx, p)
	}
	return nil
}

func (m *MockForumRepository) DeletePostsByForum(ctx context.Context, forumID string) (int64, error) {
	if m.DeletePostsByForumFunc != nil {
		return m.DeletePostsByForumFunc(ctx, forumID)
	}
	return 0, nil
}

func (m *MockForumRepository) CreateMembership(ctx context.Context, fm *models.ForumMembership) error {
	if m.CreateMembershipFunc != nil {
		return m.CreateMembershipFunc(ctx, fm)
	}
	return nil
}

func (m *MockForumRepository) GetMembership(ctx context.Context, forumID, userID string) (*models.ForumMembership, error) {
	if m.GetMembershipFunc != nil {
		return m.GetMembershipFunc(ctx, forumID, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockForumRepository) DeleteMembership(ctx context.Context, forumID, userID string) error {
	if m.DeleteMembershipFunc != nil {
		return m.DeleteMembershipFunc(ctx, forumID, userID)
	}
	return nil
}

func (m *MockForumRepository) ListMembers(ctx context.Context, forumID string, limit int) ([]*models.ForumMembership, error) {
	if m.ListMembersFunc != nil {
		return m.ListMembersFunc(ctx, forumID, limit)
	}
	return []*models.ForumMembership{}, nil
}

// MockQuestionRepository implements QuestionRepository for testing
type MockQuestionRepository struct {
	CreateFunc       func(ctx context.Context, q *models.Question) error
	GetByIDFunc      func(ctx context.Context, id string) (*models.Question, error)
	ListFunc         func(ctx context.Context, condition string, limit int) ([]*models.Question, error)
	CreateAnswerFunc func(ctx context.Context, a *models.Answer) error
	ListAnswersFunc  func(ctx context.Context, questionID string) ([]*models.Answer, error)
	VoteFunc         func(ctx context.Context, answerID, userID, voteType string) (*models.VoteTally, error)
}

func (m *MockQuestionRepository) Create(ctx context.Context, q *models.Question) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, q)
	}
	return nil
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockQuestionRepository) List(ctx context.Context, condition string, limit int) ([]*models.Question, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, condition, limit)
	}
	return []*models.Question{}, nil
}

func (m *MockQuestionRepository) CreateAnswer(ctx context.Context, a *models.Answer) error {
	if m.CreateAnswerFunc != nil {
		return m.CreateAnswerFunc(ctx, a)
	}
	return nil
}

func (m *MockQuestionRepository) ListAnswers(ctx context.Context, questionID string) ([]*models.Answer, error) {
	if m.ListAnswersFunc != nil {
		return m.ListAnswersFunc(ctx, questionID)
	}
	return []*models.Answer{}, nil
}

func (m *MockQuestionRepository) Vote(ctx context.Context, answerID, userID, voteType string) (*models.VoteTally, error) {
	if m.VoteFunc != nil {
		return m.VoteFunc(ctx, answerID, userID, voteType)
	}
	return nil, models.ErrNotFound
}

// MockChatRepository implements ChatRepository for testing. CreateRoom
// defaults to an active room keyed by the appointment.
type MockChatRepository struct {
	CreateRoomFunc      func(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error)
	GetRoomFunc         func(ctx context.Context, id string) (*models.ChatRoom, error)
	ListActiveRoomsFunc func(ctx context.Context, userID string) ([]*models.ChatRoom, error)
	ListMessagesFunc    func(ctx context.Context, roomID string, limit int) ([]*models.ChatMessage, error)
	CreateMessageFunc   func(ctx context.Context, msg *models.ChatMessage) error
	CloseRoomFunc       func(ctx context.Context, roomID string) (*models.ChatRoom, error)
}

func (m *MockChatRepository) CreateRoom(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error) {
	if m.CreateRoomFunc != nil {
		return m.CreateRoomFunc(ctx, room)
	}
	stored := *room
	stored.ID = "room-" + room.AppointmentID
	stored.Status = models.ChatRoomActive
	return &stored, nil
}

func (m *MockChatRepository) GetRoom(ctx context.Context, id string) (*models.ChatRoom, error) {
	if m.GetRoomFunc != nil {
		return m.GetRoomFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockChatRepository) ListActiveRooms(ctx context.Context, userID string) ([]*models.ChatRoom, error) {
	if m.ListActiveRoomsFunc != nil {
		return m.ListActiveRoomsFunc(ctx, userID)
	}
	return []*models.ChatRoom{}, nil
}

func (m *MockChatRepository) ListMessages(ctx context.Context, roomID string, limit int) ([]*models.ChatMessage, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, roomID, limit)
	}
	return []*models.ChatMessage{}, nil
}

func (m *MockChatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	if m.CreateMessageFunc != nil {
		return m.CreateMessageFunc(ctx, msg)
	}
	return nil
}

func (m *MockChatRepository) CloseRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	if m.CloseRoomFunc != nil {
		return m.CloseRoomFunc(ctx, roomID)
	}
	return nil, models.ErrNotFound
}

// MockTrialFetcher implements TrialFetcher for testing
type MockTrialFetcher struct {
	SearchFunc func(ctx context.Context, params trials.SearchParams) ([]*models.ClinicalTrial, int, error)
}

func (m *MockTrialFetcher) Search(ctx context.Context, params trials.SearchParams) ([]*models.ClinicalTrial, int, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, params)
	}
	return []*models.ClinicalTrial{}, 0, nil
}

// MockPublicationFetcher implements PublicationFetcher for testing
type MockPublicationFetcher struct {
	SearchFunc func(ctx context.Context, params pubmed.SearchParams) ([]*models.Publication, error)
}

func (m *MockPublicationFetcher) Search(ctx context.Context, params pubmed.SearchParams) ([]*models.Publication, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, params)
	}
	return []*models.Publication{}, nil
}

// MockCompleter implements summary.Completer for testing
type MockCompleter struct {
	CompleteFunc func(ctx context.Context, system, prompt string) (string, error)
}

func (m *MockCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, prompt)
	}
	return "", models.ErrInternalServer
}

// MockSummarizer implements Summarizer for testing
type MockSummarizer struct {
	SummarizeFunc func(ctx context.Context, content string) (string, error)
}

func (m *MockSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, content)
	}
	return "", models.ErrInternalServer
}

func (m *MockSummarizer) SummarizeOrExcerpt(ctx context.Context, content, fallbackText string) (string, bool) {
	text, err := m.Summarize(ctx, content)
	if err != nil {
		return "excerpt: " + fallbackText, false
	}
	return text, true
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	NotifyFunc func(ctx context.Context, userID, notificationType, title, content string, link *string) error
}

func (m *MockNotifier) Notify(ctx context.Context, userID, notificationType, title, content string, link *string) error {
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, userID, notificationType, title, content, link)
	}
	return nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendNotificationEmailFunc func(ctx context.Context, to string, n *models.Notification) error
}

func (m *MockEmailSender) SendNotificationEmail(ctx context.Context, to string, n *models.Notification) error {
	if m.SendNotificationEmailFunc != nil {
		return m.SendNotificationEmailFunc(ctx, to, n)
	}
	return nil
}

// InlineTaskQueue runs tasks synchronously, once, when enqueued
type InlineTaskQueue struct {
	Names  []string
	Errors []error
	Refuse error
}

func (q *InlineTaskQueue) Enqueue(name string, fn background.TaskFunc) error {
	if q.Refuse != nil {
		return q.Refuse
	}
	q.Names = append(q.Names, name)
	q.Errors = append(q.Errors, fn(context.Background()))
	return nil
}
