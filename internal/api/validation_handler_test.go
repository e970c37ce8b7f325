package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/fluxfilter/internal/validation"
)

func TestValidationEndpoints(t *testing.T) {
	server := newTestServer(t, testConfig())

	var idBody struct {
		Entity string `json:"entity"`
		ID     string `json:"id"`
	}
	resp := get(t, server, "/api/v1/validation/Role/id", &idBody)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Role", idBody.Entity)
	assert.Equal(t, validation.EntityID("Role"), idBody.ID)

	var rules map[string]map[string]any
	resp = get(t, server, "/api/v1/validation/rules/"+idBody.ID, &rules)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	require.Contains(t, rules, "code")
	assert.Equal(t, true, rules["code"]["required"])
	assert.Equal(t, true, rules["code"]["unique"])
	assert.Equal(t, float64(64), rules["code"]["maxlength"])
	assert.Equal(t, float64(6), rules["code"]["minlength"])
	assert.Equal(t, "^ROLE_.*", rules["code"]["regex"])

	assert.NotContains(t, rules, "id")
	assert.NotContains(t, rules, "version")
	assert.NotContains(t, rules, "roleR2Privileges")
}

func TestValidationRules_IDBeforeLookup(t *testing.T) {
	server := newTestServer(t, testConfig())

	var rules map[string]map[string]any
	resp := get(t, server, "/api/v1/validation/rules/"+validation.EntityID("User"), &rules)

	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, rules, "authGuid")
}

func TestValidationEndpoints_Errors(t *testing.T) {
	server := newTestServer(t, testConfig())

	t.Run("unknown entity", func(t *testing.T) {
		var body ErrorResponse
		resp := get(t, server, "/api/v1/validation/Invoice/id", &body)
		assert.Equal(t, 404, resp.StatusCode)
		assert.Equal(t, CodeUnknownEntity, body.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		var body ErrorResponse
		resp := get(t, server, "/api/v1/validation/rules/0123456789abcdef", &body)
		assert.Equal(t, 404, resp.StatusCode)
		assert.Equal(t, CodeUnknownValidationID, body.Code)
	})
}

func TestValidationRules_DevModeSkipsCacheHeader(t *testing.T) {
	cfg := testConfig()
	cfg.Validation.DevMode = true
	server := newTestServer(t, cfg)

	resp := get(t, server, "/api/v1/validation/rules/"+validation.EntityID("Role"), nil)
	require.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Cache-Control"))
}

func TestValidationRules_IDsSurviveLaterRequests(t *testing.T) {
	server := newTestServer(t, testConfig())

	idOf := func(entity string) string {
		var body struct {
			ID string `json:"id"`
		}
		resp := get(t, server, "/api/v1/validation/"+entity+"/id", &body)
		require.Equal(t, 200, resp.StatusCode)
		return body.ID
	}
	rulesOf := func(id string) map[string]map[string]any {
		var rules map[string]map[string]any
		resp := get(t, server, "/api/v1/validation/rules/"+id, &rules)
		require.Equal(t, 200, resp.StatusCode)
		return rules
	}

	roleID := idOf("Role")
	userID := idOf("User")
	assert.Equal(t, validation.EntityID("User"), userID)

	rules := rulesOf(roleID)
	assert.Contains(t, rules, "code")
	assert.NotContains(t, rules, "authGuid")

	assert.Contains(t, rulesOf(userID), "authGuid")

	rules = rulesOf(roleID)
	assert.Contains(t, rules, "code")
	assert.NotContains(t, rules, "authGuid")
}
