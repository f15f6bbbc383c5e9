package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/curalink/internal/models"
)

func setupDB(t *testing.T) (*TestDB, *Repos) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.Teardown(context.Background()) })

	return testDB, InitializeRepositories(testDB.DB)
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	testDB, repos := setupDB(t)
	ctx := context.Background()

	email, name := TestUser("session")
	user, err := SeedUser(ctx, testDB.DB, email, name, models.RolePatient)
	require.NoError(t, err)

	require.NoError(t, SeedSession(ctx, testDB.DB, user, "live-token", time.Hour))
	require.NoError(t, SeedSession(ctx, testDB.DB, user, "stale-token", -time.Minute))

	got, err := repos.Sessions.GetByToken(ctx, "live-token")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	err = SeedSession(ctx, testDB.DB, user, "live-token", time.Hour)
	assert.ErrorIs(t, err, models.ErrConflict)

	purged, err := repos.Sessions.DeleteExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = repos.Sessions.GetByToken(ctx, "stale-token")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, repos.Sessions.DeleteByToken(ctx, "live-token"))
	require.NoError(t, repos.Sessions.DeleteByToken(ctx, "live-token"))
}

func TestUserRepository_RolesRoundTrip(t *testing.T) {
	testDB, repos := setupDB(t)
	ctx := context.Background()

	email, name := TestUser("roles")
	user, err := SeedUser(ctx, testDB.DB, email, name)
	require.NoError(t, err)
	assert.Empty(t, user.Roles)

	updated, err := repos.Users.UpdateRoles(ctx, user.ID, []models.Role{models.RolePatient, models.RoleResearcher})
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Role{models.RolePatient, models.RoleResearcher}, updated.Roles)

	_, err = SeedUser(ctx, testDB.DB, email, "Duplicate")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestFavoriteRepository_Uniqueness(t *testing.T) {
	testDB, repos := setupDB(t)
	ctx := context.Background()

	email, name := TestUser("fav")
	owner, err := SeedUser(ctx, testDB.DB, email, name, models.RolePatient)
	require.NoError(t, err)
	email, name = TestUser("other")
	other, err := SeedUser(ctx, testDB.DB, email, name, models.RolePatient)
	require.NoError(t, err)

	fav := &models.Favorite{UserID: owner.ID, ItemType: models.ItemTypeTrial, ItemID: "t1"}
	require.NoError(t, repos.Favorites.Create(ctx, fav))

	err = repos.Favorites.Create(ctx, &models.Favorite{UserID: owner.ID, ItemType: models.ItemTypeTrial, ItemID: "t1"})
	assert.ErrorIs(t, err, models.ErrConflict)

	// Same item id under a different type is a different favorite
	require.NoError(t, repos.Favorites.Create(ctx, &models.Favorite{UserID: owner.ID, ItemType: models.ItemTypePublication, ItemID: "t1"}))

	err = repos.Favorites.Delete(ctx, fav.ID, other.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	list, err := repos.Favorites.ListByUser(ctx, owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAppointmentRepository_OwnershipAndReviews(t *testing.T) {
	testDB, repos := setupDB(t)
	ctx := context.Background()

	email, name := TestUser("patient")
	patient, err := SeedUser(ctx, testDB.DB, email, name, models.RolePatient)
	require.NoError(t, err)
	email, name = TestUser("researcher")
	researcher, err := SeedUser(ctx, testDB.DB, email, name, models.RoleResearcher)
	require.NoError(t, err)

	appt, err := repos.Appointments.Create(ctx, &models.Appointment{
		PatientID:         patient.ID,
		PatientName:       patient.Name,
		ResearcherID:      researcher.ID,
		Condition:         "asthma",
		Location:          "Boston",
		DurationSuffering: "2 years",
		Status:            models.AppointmentPending,
	})
	require.NoError(t, err)

	_, err = repos.Appointments.UpdateStatus(ctx, appt.ID, patient.ID, models.AppointmentAccepted)
	assert.ErrorIs(t, err, models.ErrNotFound)

	updated, err := repos.Appointments.UpdateStatus(ctx, appt.ID, researcher.ID, models.AppointmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, updated.Status)

	review := &models.Review{AppointmentID: appt.ID, PatientID: patient.ID, ResearcherID: researcher.ID, Rating: 4}
	require.NoError(t, repos.Reviews.Create(ctx, review))

	err = repos.Reviews.Create(ctx, &models.Review{AppointmentID: appt.ID, PatientID: patient.ID, ResearcherID: researcher.ID, Rating: 5})
	assert.ErrorIs(t, err, models.ErrConflict)

	summaries, err := repos.Reviews.Summaries(ctx, []string{researcher.ID, "nobody"})
	require.NoError(t, err)
	assert.Equal(t, models.RatingSummary{AverageRating: 4, TotalReviews: 1}, summaries[researcher.ID])
	assert.NotContains(t, summaries, "nobody")
}

func TestTrialRepository_LocalListing(t *testing.T) {
	testDB, repos := setupDB(t)
	ctx := context.Background()

	email, name := TestUser("trials")
	researcher, err := SeedUser(ctx, testDB.DB, email, name, models.RoleResearcher)
	require.NoError(t, err)

	_, err = repos.Trials.Create(ctx, &models.ClinicalTrial{
		Title:        "Inhaled steroid study",
		Description:  "Severe asthma in adults",
		Status:       "Recruiting",
		Location:     "Boston, MA",
		DiseaseAreas: []string{"asthma"},
		CreatedBy:    &researcher.ID,
	})
	require.NoError(t, err)

	got, err := repos.Trials.List(ctx, models.TrialFilter{Condition: "asthma"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.SourceLocal, got[0].Source)

	got, err = repos.Trials.List(ctx, models.TrialFilter{CreatedBy: researcher.ID, Status: "Completed"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTrialRepository_GetByExternalID(t *testing.T) {
	_, repos := setupDB(t)
	ctx := context.Background()

	nct := "NCT01234567"
	stored, err := repos.Trials.UpsertExternal(ctx, &models.ClinicalTrial{
		ExternalID: &nct,
		Source:     models.SourceClinicalTrials,
		Title:      "Registry trial",
	})
	require.NoError(t, err)

	got, err := repos.Trials.GetByExternalID(ctx, nct)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)

	_, err = repos.Trials.GetByExternalID(ctx, "NCT00000000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChatRepository_Lifecycle(t *testing.T) {
	testDB, repos := setupDB(t)
	ctx := context.Background()

	email, name := TestUser("chat-patient")
	patient, err := SeedUser(ctx, testDB.DB, email, name, models.RolePatient)
	require.NoError(t, err)
	email, name = TestUser("chat-researcher")
	researcher, err := SeedUser(ctx, testDB.DB, email, name, models.RoleResearcher)
	require.NoError(t, err)

	appt, err := repos.Appointments.Create(ctx, &models.Appointment{
		PatientID:    patient.ID,
		PatientName:  patient.Name,
		ResearcherID: researcher.ID,
		Condition:    "asthma",
		Status:       models.AppointmentAccepted,
	})
	require.NoError(t, err)

	room, err := repos.Chats.CreateRoom(ctx, &models.ChatRoom{AppointmentID: appt.ID, PatientID: patient.ID, ResearcherID: researcher.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ChatRoomActive, room.Status)

	again, err := repos.Chats.CreateRoom(ctx, &models.ChatRoom{AppointmentID: appt.ID, PatientID: patient.ID, ResearcherID: researcher.ID})
	require.NoError(t, err)
	assert.Equal(t, room.ID, again.ID)

	listed, err := repos.Appointments.ListForUser(ctx, patient.ID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].ChatRoomID)
	assert.Equal(t, room.ID, *listed[0].ChatRoomID)

	require.NoError(t, repos.Chats.CreateMessage(ctx, &models.ChatMessage{
		ChatRoomID: room.ID, SenderID: patient.ID, SenderName: patient.Name, SenderRole: "patient",
		MessageType: models.MessageTypeText, Content: "hello",
	}))
	msgs, err := repos.Chats.ListMessages(ctx, room.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)

	rooms, err := repos.Chats.ListActiveRooms(ctx, researcher.ID)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	closed, err := repos.Chats.CloseRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChatRoomClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	_, err = repos.Chats.CloseRoom(ctx, room.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	completed, err := repos.Appointments.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, completed.Status)

	msgs, err = repos.Chats.ListMessages(ctx, room.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	err = repos.Chats.CreateMessage(ctx, &models.ChatMessage{
		ChatRoomID: room.ID, SenderID: patient.ID, SenderName: patient.Name, SenderRole: "patient",
		MessageType: models.MessageTypeText, Content: "late",
	})
	assert.ErrorIs(t, err, models.ErrChatRoomClosed)

	rooms, err = repos.Chats.ListActiveRooms(ctx, researcher.ID)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestQuestionRepository_Vote(t *testing.T) {
	testDB, repos := setupDB(t)
	ctx := context.Background()

	email, name := TestUser("vote-patient")
	patient, err := SeedUser(ctx, testDB.DB, email, name, models.RolePatient)
	require.NoError(t, err)
	email, name = TestUser("vote-other")
	other, err := SeedUser(ctx, testDB.DB, email, name, models.RolePatient)
	require.NoError(t, err)

	q := &models.Question{PatientID: patient.ID, Title: "Diet?", Content: "What should I eat?"}
	require.NoError(t, repos.Questions.Create(ctx, q))
	a := &models.Answer{QuestionID: q.ID, ResearcherID: "r1", ResearcherName: "Dr. Grey", Content: "Vegetables."}
	require.NoError(t, repos.Questions.CreateAnswer(ctx, a))

	tally, err := repos.Questions.Vote(ctx, a.ID, patient.ID, models.VoteLike)
	require.NoError(t, err)
	assert.Equal(t, models.VoteTally{AnswerID: a.ID, Vote: models.VoteLike, Likes: 1}, *tally)

	tally, err = repos.Questions.Vote(ctx, a.ID, other.ID, models.VoteLike)
	require.NoError(t, err)
	assert.Equal(t, 2, tally.Likes)

	// switching moves the vote
	tally, err = repos.Questions.Vote(ctx, a.ID, patient.ID, models.VoteDislike)
	require.NoError(t, err)
	assert.Equal(t, models.VoteTally{AnswerID: a.ID, Vote: models.VoteDislike, Likes: 1, Dislikes: 1}, *tally)

	// repeating withdraws it
	tally, err = repos.Questions.Vote(ctx, a.ID, patient.ID, models.VoteDislike)
	require.NoError(t, err)
	assert.Equal(t, models.VoteTally{AnswerID: a.ID, Likes: 1}, *tally)

	answers, err := repos.Questions.ListAnswers(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, 1, answers[0].Likes)
	assert.Equal(t, 0, answers[0].Dislikes)

	_, err = repos.Questions.Vote(ctx, "missing", patient.ID, models.VoteLike)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestForumRepository_Memberships(t *testing.T) {
	testDB, repos := setupDB(t)
	ctx := context.Background()

	email, name := TestUser("forum-member")
	user, err := SeedUser(ctx, testDB.DB, email, name, models.RolePatient)
	require.NoError(t, err)

	forum, err := repos.Forums.Create(ctx, &models.Forum{Name: "Respiratory", CreatedBy: user.ID, CreatedByName: user.Name})
	require.NoError(t, err)

	m := &models.ForumMembership{ForumID: forum.ID, ForumName: forum.Name, UserID: user.ID, UserName: user.Name, Specialty: "Patient"}
	require.NoError(t, repos.Forums.CreateMembership(ctx, m))

	dup := &models.ForumMembership{ForumID: forum.ID, ForumName: forum.Name, UserID: user.ID, UserName: user.Name, Specialty: "Patient"}
	assert.ErrorIs(t, repos.Forums.CreateMembership(ctx, dup), models.ErrConflict)

	got, err := repos.Forums.GetMembership(ctx, forum.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	members, err := repos.Forums.ListMembers(ctx, forum.ID, 0)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	require.NoError(t, repos.Forums.DeleteMembership(ctx, forum.ID, user.ID))
	assert.ErrorIs(t, repos.Forums.DeleteMembership(ctx, forum.ID, user.ID), models.ErrNotFound)
	_, err = repos.Forums.GetMembership(ctx, forum.ID, user.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
