package prompt

import (
	"strings"
	"testing"

	"github.com/applyo/prospector/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSpec(t *testing.T, kind string) *task.Spec {
	t.Helper()
	catalog, err := task.LoadDefault()
	require.NoError(t, err)
	spec, ok := catalog.Get(kind)
	require.True(t, ok)
	return spec
}

func TestBuild_EmailDiscovery(t *testing.T) {
	t.Parallel()

	spec := loadSpec(t, task.KindEmails)
	p, err := Build(spec, task.Inputs{
		"firstName": "Jo",
		"lastName":  "Lee",
		"company":   "Acme",
		"domain":    "acme.com",
	})
	require.NoError(t, err)

	assert.Equal(t, spec.System, p.System)
	assert.Contains(t, p.User, "Jo Lee (Acme)")
	assert.Contains(t, p.User, "Company domain: acme.com")
	assert.Contains(t, p.User, "=== TOOLS ===")
	assert.Contains(t, p.User, "Available tools: web_search")
	assert.Contains(t, p.User, "between 5 and 10 searches")
	assert.Contains(t, p.User, "=== OUTPUT FORMAT ===")
	assert.Contains(t, p.User, "- emails: array of strings, required, up to 8 items")
	assert.Contains(t, p.User, "- pattern_found: string\n")
	assert.Contains(t, p.User, "No markdown code blocks")
}

func TestBuild_AbsentVersusEmptyInput(t *testing.T) {
	t.Parallel()

	spec := loadSpec(t, task.KindEmails)
	base := task.Inputs{"firstName": "Jo", "lastName": "Lee", "company": "Acme"}

	absent, err := Build(spec, base)
	require.NoError(t, err)
	assert.Contains(t, absent.User, "Company domain: not provided")

	withEmpty := task.Inputs{"firstName": "Jo", "lastName": "Lee", "company": "Acme", "domain": ""}
	empty, err := Build(spec, withEmpty)
	require.NoError(t, err)
	assert.Contains(t, empty.User, `Company domain: "" (empty)`)
	assert.NotEqual(t, absent.User, empty.User)
}

func TestBuild_OptionalSectionUsesHas(t *testing.T) {
	t.Parallel()

	spec := loadSpec(t, task.KindPeople)

	without, err := Build(spec, task.Inputs{"company": "Acme"})
	require.NoError(t, err)
	assert.NotContains(t, without.User, "Additional context")
	assert.Contains(t, without.User, "Known website: not provided")

	with, err := Build(spec, task.Inputs{"company": "Acme", "notes": "robotics startup"})
	require.NoError(t, err)
	assert.Contains(t, with.User, "Additional context: robotics startup")
	assert.Contains(t, with.User, "- people: array of objects, required, up to 3 items")
	assert.Contains(t, with.User, "  - name: string, required")
}

func TestBuild_NoToolsSectionWithoutTools(t *testing.T) {
	t.Parallel()

	p, err := Build(loadSpec(t, task.KindProfile), task.Inputs{"resume": "Engineer"})
	require.NoError(t, err)
	assert.NotContains(t, p.User, "=== TOOLS ===")
	assert.Contains(t, p.User, "- summary: string, required")
}

func TestBuild_LanguageHint(t *testing.T) {
	t.Parallel()

	spec := loadSpec(t, task.KindCompanies)
	summary := "Ingeniera de software con diez años de experiencia en sistemas distribuidos, " +
		"liderazgo de equipos y desarrollo de productos para empresas de tecnología financiera."

	p, err := Build(spec, task.Inputs{"summary": summary, "preferences": "remoto"})
	require.NoError(t, err)
	assert.Contains(t, p.User, "Write every company summary and reason in Spanish.")

	short, err := Build(spec, task.Inputs{"summary": "Go dev", "preferences": "remote"})
	require.NoError(t, err)
	assert.NotContains(t, short.User, "Write every company summary")
}

func TestCheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Check(loadSpec(t, task.KindPeople)))

	err := Check(&task.Spec{Name: "broken", Prompt: "{{input \"x\""})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "broken"))
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	assert.Empty(t, detectLanguage("short"))
	assert.Equal(t, "English", detectLanguage(
		"Backend engineer with ten years of experience building distributed systems and leading teams."))
}
