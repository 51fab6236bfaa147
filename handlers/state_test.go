package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"geo_atlas_go/db"
	"geo_atlas_go/models"
	"geo_atlas_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStatesUnderOwnedCountry(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	countries, err := services.CreateCountryBatch(db.DB, user, []services.CountryInput{{
		Name: "India", CountryCode: "IN", CurrSymbol: "₹", PhoneCode: "+91",
	}})
	require.NoError(t, err)

	body := fmt.Sprintf(`{"name":"Kerala","state_code":"KL","gst_code":"32KERGST","country_id":%q}`, countries[0].ID)
	c, rec := newContext(t, cfg, user, http.MethodPost, "/app/states/", body)
	require.NoError(t, CreateStates(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var state models.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "Kerala", state.Name)
	assert.Equal(t, "India", state.CountryName)
	assert.Equal(t, countries[0].ID, state.CountryID)
}

func TestCreateStatesForeignCountry(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	owner := createTestUser(t, gdb, "owner@example.com")
	other := createTestUser(t, gdb, "other@example.com")

	countries, err := services.CreateCountryBatch(db.DB, owner, []services.CountryInput{{
		Name: "India", CountryCode: "IN", CurrSymbol: "₹", PhoneCode: "+91",
	}})
	require.NoError(t, err)

	// Another owner's country reads as missing, not forbidden
	body := fmt.Sprintf(`{"name":"Kerala","state_code":"KL","gst_code":"32KERGST","country_id":%q}`, countries[0].ID)
	c, rec := newContext(t, cfg, other, http.MethodPost, "/app/states/", body)
	require.NoError(t, CreateStates(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "country not found")
}

func TestUpdateStatePartial(t *testing.T) {
	gdb := setupTestDB(t)
	cfg := testConfig()
	user := createTestUser(t, gdb, "owner@example.com")

	countries, err := services.CreateCountryBatch(db.DB, user, []services.CountryInput{{
		Name: "India", CountryCode: "IN", CurrSymbol: "₹", PhoneCode: "+91",
		States: []services.StateInput{{Name: "Gujarat", StateCode: "GJ", GSTCode: "24GUJGST"}},
	}})
	require.NoError(t, err)
	stateID := countries[0].States[0].ID

	c, rec := newContext(t, cfg, user, http.MethodPatch, "/app/states/"+stateID,
		`{"state_code":"GUJ"}`)
	c.SetParamNames("id")
	c.SetParamValues(stateID)
	require.NoError(t, UpdateState(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var state models.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "GUJ", state.StateCode)
	assert.Equal(t, "Gujarat", state.Name)
}
