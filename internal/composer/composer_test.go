package composer_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/agentoven/advisor-desk/internal/composer"
	"github.com/agentoven/advisor-desk/pkg/models"
)

func user(s string) models.Message      { return models.NewMessage(models.RoleUser, s, 0) }
func assistant(s string) models.Message { return models.NewMessage(models.RoleAssistant, s, 10) }

func TestCompose_QueryOnly(t *testing.T) {
	got := composer.Compose(nil, "How much should I save?", "", composer.DefaultMaxHistory)
	assert.Equal(t, "CURRENT USER QUERY: How much should I save?", got)
}

func TestCompose_ExcludesTrailingDuplicate(t *testing.T) {
	transcript := []models.Message{
		user("hi"),
		assistant("hello"),
		user("What is 80C?"),
	}

	got := composer.Compose(transcript, "What is 80C?", "", 5)

	want := "CURRENT USER QUERY: What is 80C?\n" +
		"HISTORY CONVERSATION:\n" +
		"user: hi\n" +
		"you: hello"
	assert.Equal(t, want, got)
	assert.Equal(t, 1, strings.Count(got, "What is 80C?"))
}

func TestCompose_TrailingAssistantNotExcluded(t *testing.T) {
	transcript := []models.Message{assistant("same")}
	got := composer.Compose(transcript, "same", "", 5)
	assert.Contains(t, got, "HISTORY CONVERSATION:\nyou: same")
}

func TestCompose_NotYetAppended(t *testing.T) {
	transcript := []models.Message{user("first"), assistant("reply")}
	got := composer.Compose(transcript, "second", "", 5)
	assert.True(t, strings.HasSuffix(got, "user: first\nyou: reply"))
}

func TestWindow_CapKeepsLastEntriesInOrder(t *testing.T) {
	var transcript []models.Message
	for i := 0; i < 12; i++ {
		if i%2 == 0 {
			transcript = append(transcript, user(fmt.Sprintf("u%d", i)))
		} else {
			transcript = append(transcript, assistant(fmt.Sprintf("a%d", i)))
		}
	}

	for _, max := range []int{0, 1, 3, 5, 11} {
		got := composer.Window(transcript, "new question", max)
		want := transcript[len(transcript)-max:]
		if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("Window(max=%d) mismatch (-want +got):\n%s", max, diff)
		}
	}
}

func TestWindow_NegativeCap(t *testing.T) {
	got := composer.Window([]models.Message{user("a")}, "b", -1)
	assert.Empty(t, got)
}

func TestCompose_ProfileBlock(t *testing.T) {
	got := composer.Compose([]models.Message{user("hi")}, "Plan my taxes", "- Name: Asha", 5)

	want := "USER PROFILE:\n- Name: Asha\n\n" +
		"CURRENT USER QUERY: Plan my taxes\n" +
		"HISTORY CONVERSATION:\n" +
		"user: hi"
	assert.Equal(t, want, got)
}

func TestCompose_NoProfileNoHeading(t *testing.T) {
	got := composer.Compose([]models.Message{user("a"), assistant("b")}, "c", "", 5)
	assert.NotContains(t, got, "USER PROFILE:")
}

func TestCompose_AssistantAlwaysRelabelled(t *testing.T) {
	transcript := []models.Message{
		assistant("one"), user("two"), assistant("three"), assistant("four"),
	}
	got := composer.Compose(transcript, "five", "", 5)

	for _, line := range strings.Split(got, "\n") {
		assert.False(t, strings.HasPrefix(line, "assistant:"), "line %q uses raw role", line)
	}
	assert.Equal(t, 3, strings.Count(got, "\nyou: "))
}

func TestCompose_NoTruncationOfLongMessages(t *testing.T) {
	long := strings.Repeat("x", 50_000)
	got := composer.Compose([]models.Message{assistant(long)}, "q", "", 5)
	assert.Contains(t, got, long)
}
