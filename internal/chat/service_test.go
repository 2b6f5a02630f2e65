package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/common"
	"github.com/medinsight/medinsight/internal/entity"
	"github.com/medinsight/medinsight/internal/repository"
)

type capturingChatter struct {
	reply      string
	err        error
	gotMessage string
	gotContext string
	calls      int
}

func (c *capturingChatter) Chat(_ context.Context, message, reportContext string) (string, error) {
	c.calls++
	c.gotMessage = message
	c.gotContext = reportContext
	return c.reply, c.err
}

func seedReport(t *testing.T, repo *repository.MemoryRepository, owner uuid.UUID, summary string, abnormalities []string) uuid.UUID {
	t.Helper()
	r := entity.Report{
		OwnerID:         owner,
		FileName:        "cbc.txt",
		FileType:        constants.FormatText,
		Summary:         summary,
		Abnormalities:   abnormalities,
		Recommendations: []string{"Consult a physician"},
		Status:          constants.StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), &r))
	return r.ID
}

func TestChatWithOwnedReportContext(t *testing.T) {
	repo := repository.NewMemoryRepository()
	owner := entity.Subject{ID: uuid.New(), Role: constants.RolePatient}
	id := seedReport(t, repo, owner.ID, "Mild anemia.", []string{"Low hemoglobin"})

	ch := &capturingChatter{reply: "Anemia means fewer red blood cells."}
	svc := NewService(nil, repo, ch)

	reply, err := svc.Chat(context.Background(), owner, "What does this mean?", &id)
	require.NoError(t, err)
	assert.Equal(t, "Anemia means fewer red blood cells.", reply.Message)
	assert.False(t, reply.Timestamp.IsZero())

	assert.Equal(t, "What does this mean?", ch.gotMessage)
	assert.Equal(t,
		"Report Summary: Mild anemia.\nAbnormalities: Low hemoglobin\nRecommendations: Consult a physician",
		ch.gotContext)
}

func TestChatForeignReportDegradesToEmptyContext(t *testing.T) {
	repo := repository.NewMemoryRepository()
	other := uuid.New()
	id := seedReport(t, repo, other, "Not yours.", nil)

	ch := &capturingChatter{reply: "ok"}
	svc := NewService(nil, repo, ch)
	caller := entity.Subject{ID: uuid.New(), Role: constants.RolePatient}

	_, err := svc.Chat(context.Background(), caller, "Tell me about this report", &id)
	require.NoError(t, err, "chat is best-effort, not an authorization surface")
	assert.Empty(t, ch.gotContext, "foreign report content must not leak into the prompt")
}

func TestChatUnknownReportDegradesToEmptyContext(t *testing.T) {
	repo := repository.NewMemoryRepository()
	ch := &capturingChatter{reply: "ok"}
	svc := NewService(nil, repo, ch)

	id := uuid.New()
	_, err := svc.Chat(context.Background(),
		entity.Subject{ID: uuid.New(), Role: constants.RolePatient}, "Hello", &id)
	require.NoError(t, err)
	assert.Empty(t, ch.gotContext)
}

func TestChatRecentReportsContext(t *testing.T) {
	repo := repository.NewMemoryRepository()
	owner := entity.Subject{ID: uuid.New(), Role: constants.RolePatient}
	for i := 0; i < 5; i++ {
		seedReport(t, repo, owner.ID, "Summary", []string{"Finding"})
	}

	ch := &capturingChatter{reply: "ok"}
	svc := NewService(nil, repo, ch)

	_, err := svc.Chat(context.Background(), owner, "How am I doing overall?", nil)
	require.NoError(t, err)
	assert.Contains(t, ch.gotContext, "Report: Summary\nAbnormalities: Finding")
	// Only the three most recent reports feed the prompt.
	assert.Len(t, strings.Split(ch.gotContext, "\n\n"), 3)
}

func TestChatEmptyMessageRejected(t *testing.T) {
	ch := &capturingChatter{}
	svc := NewService(nil, repository.NewMemoryRepository(), ch)

	_, err := svc.Chat(context.Background(),
		entity.Subject{ID: uuid.New(), Role: constants.RolePatient}, "   ", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
	assert.Equal(t, 0, ch.calls)
}

func TestChatBackendErrorPassesThrough(t *testing.T) {
	ch := &capturingChatter{err: common.AnalysisUnavailable(errors.New("down"))}
	svc := NewService(nil, repository.NewMemoryRepository(), ch)

	_, err := svc.Chat(context.Background(),
		entity.Subject{ID: uuid.New(), Role: constants.RolePatient}, "Hello", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrAnalysisUnavailable))
}
