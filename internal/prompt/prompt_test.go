package prompt

import (
	"testing"

	"github.com/otronforge/gateway/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGemmaTemplateFullConversation(t *testing.T) {
	msgs := []Message{
		{Role: "system", Content: "S"},
		{Role: "user", Content: "U1"},
		{Role: "assistant", Content: "A1"},
		{Role: "user", Content: "U2"},
	}
	got := Assemble(models.FamilyGemmaV3, msgs)
	want := "<start_of_turn>user\nS\n\nU1<end_of_turn>\n<start_of_turn>model\nA1<end_of_turn>\n<start_of_turn>user\nU2<end_of_turn>\n<start_of_turn>model\n"
	assert.Equal(t, want, got)
}

func TestGemmaTemplateNoMessages(t *testing.T) {
	assert.Equal(t, "<start_of_turn>model\n", Assemble(models.FamilyGemmaV1, nil))
}

func TestGemmaTemplateSkipsUnknownRoles(t *testing.T) {
	msgs := []Message{
		{Role: "tool", Content: "ignored"},
		{Role: "user", Content: "hi"},
	}
	got := Assemble(models.FamilyGemmaV2, msgs)
	assert.Equal(t, "<start_of_turn>user\nhi<end_of_turn>\n<start_of_turn>model\n", got)
}

func TestGemmaTemplateEmptyContent(t *testing.T) {
	msgs := []Message{{Role: "user", Content: ""}}
	got := Assemble(models.FamilyGemmaV3, msgs)
	assert.Equal(t, "<start_of_turn>user\n<end_of_turn>\n<start_of_turn>model\n", got)
}

func TestGemmaTemplateDeterministic(t *testing.T) {
	msgs := []Message{{Role: "user", Content: "hi"}}
	assert.Equal(t, Assemble(models.FamilyGemmaV3, msgs), Assemble(models.FamilyGemmaV3, msgs))
}

func TestLlamaUsesLastUserMessageOnly(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}
	assert.Equal(t, "second", Assemble(models.FamilyLlama, msgs))
}

func TestLlamaNoUserMessageIsEmpty(t *testing.T) {
	msgs := []Message{{Role: "assistant", Content: "hi"}}
	assert.Equal(t, "", Assemble(models.FamilyTinyLlama, msgs))
}
