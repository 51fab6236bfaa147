package services

import (
	"errors"
	"fmt"
	"strings"

	"geo_atlas_go/apperr"
	"geo_atlas_go/models"

	"gorm.io/gorm"
)

// Candidate payloads for batch creation. These are distinct from the
// persisted record types: a validated-but-unstored tree never carries
// identifiers or timestamps.

type CityInput struct {
	Name         string  `json:"name"`
	CityCode     string  `json:"city_code"`
	PhoneCode    string  `json:"phone_code"`
	Population   int     `json:"population"`
	AvgAge       float64 `json:"avg_age"`
	AdultMales   int     `json:"adult_males"`
	AdultFemales int     `json:"adult_females"`
	StateID      string  `json:"state_id,omitempty"` // city-rooted batches only
}

type StateInput struct {
	Name      string      `json:"name"`
	StateCode string      `json:"state_code"`
	GSTCode   string      `json:"gst_code"`
	CountryID string      `json:"country_id,omitempty"` // state-rooted batches only
	Cities    []CityInput `json:"cities,omitempty"`
}

type CountryInput struct {
	Name        string       `json:"name"`
	CountryCode string       `json:"country_code"`
	CurrSymbol  string       `json:"curr_symbol"`
	PhoneCode   string       `json:"phone_code"`
	States      []StateInput `json:"states,omitempty"`
}

// batchScope tracks values accepted earlier in the same batch. Two new
// cities sharing a city_code must both be rejected even though neither
// exists in storage yet; the store's constraints alone cannot catch that
// before commit.
type batchScope struct {
	countryNames  map[string]bool
	countryCodes  map[string]bool
	countryPhones map[string]bool
	stateNames    map[string]bool // keyed by parent scope + name
	gstCodes      map[string]bool
	cityCodes     map[string]bool
	cityPhones    map[string]bool
}

func newBatchScope() *batchScope {
	return &batchScope{
		countryNames:  make(map[string]bool),
		countryCodes:  make(map[string]bool),
		countryPhones: make(map[string]bool),
		stateNames:    make(map[string]bool),
		gstCodes:      make(map[string]bool),
		cityCodes:     make(map[string]bool),
		cityPhones:    make(map[string]bool),
	}
}

func existsWhere(gdb *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := gdb.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, apperr.StoreRead(err)
	}
	return count > 0, nil
}

// checkCountry runs the country-node checks in order and returns the first
// failure, or nil. Children are validated by the caller regardless.
func checkCountry(gdb *gorm.DB, scope *batchScope, idx int, path string, in *CountryInput) (*apperr.FieldError, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.CountryCode = strings.TrimSpace(in.CountryCode)
	in.CurrSymbol = strings.TrimSpace(in.CurrSymbol)
	in.PhoneCode = strings.TrimSpace(in.PhoneCode)

	type fieldCheck struct {
		field, value string
		maxLen       int
	}
	for _, fc := range []fieldCheck{
		{"name", in.Name, 100},
		{"country_code", in.CountryCode, 3},
		{"curr_symbol", in.CurrSymbol, 5},
		{"phone_code", in.PhoneCode, 10},
	} {
		if fc.value == "" {
			return &apperr.FieldError{Index: idx, Path: path, Field: fc.field, Kind: apperr.KindInvalid, Reason: "is required"}, nil
		}
		if len(fc.value) > fc.maxLen {
			return &apperr.FieldError{Index: idx, Path: path, Field: fc.field, Kind: apperr.KindInvalid, Reason: fmt.Sprintf("must be at most %d characters", fc.maxLen)}, nil
		}
	}

	// Uniqueness is global across all owners: stored records plus batch
	// siblings accepted so far.
	uniq := []struct {
		field, value string
		column       string
		seen         map[string]bool
	}{
		{"country_code", in.CountryCode, "country_code", scope.countryCodes},
		{"phone_code", in.PhoneCode, "phone_code", scope.countryPhones},
		{"name", in.Name, "name", scope.countryNames},
	}
	for _, u := range uniq {
		if u.seen[u.value] {
			return &apperr.FieldError{Index: idx, Path: path, Field: u.field, Kind: apperr.KindConflict, Reason: fmt.Sprintf("%q duplicated within batch", u.value)}, nil
		}
		exists, err := existsWhere(gdb, &models.Country{}, u.column+" = ?", u.value)
		if err != nil {
			return nil, err
		}
		if exists {
			return &apperr.FieldError{Index: idx, Path: path, Field: u.field, Kind: apperr.KindConflict, Reason: fmt.Sprintf("%q already exists", u.value)}, nil
		}
	}

	scope.countryNames[in.Name] = true
	scope.countryCodes[in.CountryCode] = true
	scope.countryPhones[in.PhoneCode] = true
	return nil, nil
}

// checkState validates a state node. parentKey scopes the
// (country, name) pair: the parent country's batch position for
// country-rooted trees, or the existing country id for state-rooted ones.
func checkState(gdb *gorm.DB, scope *batchScope, idx int, path, parentKey, countryID string, in *StateInput) (*apperr.FieldError, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.StateCode = strings.TrimSpace(in.StateCode)
	in.GSTCode = strings.TrimSpace(in.GSTCode)

	type fieldCheck struct {
		field, value string
		maxLen       int
	}
	for _, fc := range []fieldCheck{
		{"name", in.Name, 100},
		{"state_code", in.StateCode, 10},
		{"gst_code", in.GSTCode, 15},
	} {
		if fc.value == "" {
			return &apperr.FieldError{Index: idx, Path: path, Field: fc.field, Kind: apperr.KindInvalid, Reason: "is required"}, nil
		}
		if len(fc.value) > fc.maxLen {
			return &apperr.FieldError{Index: idx, Path: path, Field: fc.field, Kind: apperr.KindInvalid, Reason: fmt.Sprintf("must be at most %d characters", fc.maxLen)}, nil
		}
	}

	if scope.gstCodes[in.GSTCode] {
		return &apperr.FieldError{Index: idx, Path: path, Field: "gst_code", Kind: apperr.KindConflict, Reason: fmt.Sprintf("%q duplicated within batch", in.GSTCode)}, nil
	}
	exists, err := existsWhere(gdb, &models.State{}, "gst_code = ?", in.GSTCode)
	if err != nil {
		return nil, err
	}
	if exists {
		return &apperr.FieldError{Index: idx, Path: path, Field: "gst_code", Kind: apperr.KindConflict, Reason: fmt.Sprintf("%q already exists", in.GSTCode)}, nil
	}

	nameKey := parentKey + "\x00" + in.Name
	if scope.stateNames[nameKey] {
		return &apperr.FieldError{Index: idx, Path: path, Field: "name", Kind: apperr.KindConflict, Reason: fmt.Sprintf("%q duplicated within batch for the same country", in.Name)}, nil
	}
	if countryID != "" {
		exists, err := existsWhere(gdb, &models.State{}, "country_id = ? AND name = ?", countryID, in.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return &apperr.FieldError{Index: idx, Path: path, Field: "name", Kind: apperr.KindConflict, Reason: fmt.Sprintf("%q already exists in this country", in.Name)}, nil
		}
	}

	scope.gstCodes[in.GSTCode] = true
	scope.stateNames[nameKey] = true
	return nil, nil
}

func checkCity(gdb *gorm.DB, scope *batchScope, idx int, path string, in *CityInput) (*apperr.FieldError, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.CityCode = strings.TrimSpace(in.CityCode)
	in.PhoneCode = strings.TrimSpace(in.PhoneCode)

	type fieldCheck struct {
		field, value string
		maxLen       int
	}
	for _, fc := range []fieldCheck{
		{"name", in.Name, 100},
		{"city_code", in.CityCode, 10},
		{"phone_code", in.PhoneCode, 10},
	} {
		if fc.value == "" {
			return &apperr.FieldError{Index: idx, Path: path, Field: fc.field, Kind: apperr.KindInvalid, Reason: "is required"}, nil
		}
		if len(fc.value) > fc.maxLen {
			return &apperr.FieldError{Index: idx, Path: path, Field: fc.field, Kind: apperr.KindInvalid, Reason: fmt.Sprintf("must be at most %d characters", fc.maxLen)}, nil
		}
	}

	// Structural invariant: strictly greater, equality is rejected
	if in.Population <= in.AdultMales+in.AdultFemales {
		return &apperr.FieldError{
			Index: idx, Path: path, Field: "population", Kind: apperr.KindInvalid,
			Reason: fmt.Sprintf("population of city %q must be greater than adult_males + adult_females", in.Name),
		}, nil
	}

	uniq := []struct {
		field, value string
		column       string
		seen         map[string]bool
	}{
		{"city_code", in.CityCode, "city_code", scope.cityCodes},
		{"phone_code", in.PhoneCode, "phone_code", scope.cityPhones},
	}
	for _, u := range uniq {
		if u.seen[u.value] {
			return &apperr.FieldError{Index: idx, Path: path, Field: u.field, Kind: apperr.KindConflict, Reason: fmt.Sprintf("%q duplicated within batch", u.value)}, nil
		}
		exists, err := existsWhere(gdb, &models.City{}, u.column+" = ?", u.value)
		if err != nil {
			return nil, err
		}
		if exists {
			return &apperr.FieldError{Index: idx, Path: path, Field: u.field, Kind: apperr.KindConflict, Reason: fmt.Sprintf("%q already exists", u.value)}, nil
		}
	}

	scope.cityCodes[in.CityCode] = true
	scope.cityPhones[in.PhoneCode] = true
	return nil, nil
}

// validateCountryBatch checks every tree in the batch. A node stops at its
// first failed check but the scan continues through the rest of the batch,
// so the caller gets one entry per offending node.
func validateCountryBatch(gdb *gorm.DB, batch []CountryInput) error {
	verr := &apperr.ValidationError{}
	scope := newBatchScope()

	for i := range batch {
		fe, err := checkCountry(gdb, scope, i, "country", &batch[i])
		if err != nil {
			return err
		}
		if fe != nil {
			verr.Errors = append(verr.Errors, *fe)
		}
		parentKey := fmt.Sprintf("batch:%d", i)
		for j := range batch[i].States {
			spath := fmt.Sprintf("country/states[%d]", j)
			fe, err := checkState(gdb, scope, i, spath, parentKey, "", &batch[i].States[j])
			if err != nil {
				return err
			}
			if fe != nil {
				verr.Errors = append(verr.Errors, *fe)
			}
			for k := range batch[i].States[j].Cities {
				cpath := fmt.Sprintf("country/states[%d]/cities[%d]", j, k)
				fe, err := checkCity(gdb, scope, i, cpath, &batch[i].States[j].Cities[k])
				if err != nil {
					return err
				}
				if fe != nil {
					verr.Errors = append(verr.Errors, *fe)
				}
			}
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// resolveOwnedCountry loads a country and confirms it belongs to the owner.
// A country owned by someone else reads the same as a missing one.
func resolveOwnedCountry(gdb *gorm.DB, ownerID, countryID string) (*models.Country, error) {
	var country models.Country
	err := gdb.Where("id = ? AND owner_id = ?", countryID, ownerID).First(&country).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "country", ID: countryID}
		}
		return nil, apperr.StoreRead(err)
	}
	return &country, nil
}

func resolveOwnedState(gdb *gorm.DB, ownerID, stateID string) (*models.State, error) {
	var state models.State
	err := gdb.Joins("JOIN countries ON countries.id = states.country_id").
		Where("states.id = ? AND countries.owner_id = ?", stateID, ownerID).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "state", ID: stateID}
		}
		return nil, apperr.StoreRead(err)
	}
	return &state, nil
}

func validateStateBatch(gdb *gorm.DB, ownerID string, batch []StateInput) error {
	verr := &apperr.ValidationError{}
	scope := newBatchScope()

	for i := range batch {
		batch[i].CountryID = strings.TrimSpace(batch[i].CountryID)
		if batch[i].CountryID == "" {
			verr.Add(i, "state", "country_id", apperr.KindInvalid, "is required")
			continue
		}
		if _, err := resolveOwnedCountry(gdb, ownerID, batch[i].CountryID); err != nil {
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) {
				verr.Add(i, "state", "country_id", apperr.KindInvalid, "country not found")
				continue
			}
			return err
		}
		fe, err := checkState(gdb, scope, i, "state", batch[i].CountryID, batch[i].CountryID, &batch[i])
		if err != nil {
			return err
		}
		if fe != nil {
			verr.Errors = append(verr.Errors, *fe)
		}
		for k := range batch[i].Cities {
			cpath := fmt.Sprintf("state/cities[%d]", k)
			fe, err := checkCity(gdb, scope, i, cpath, &batch[i].Cities[k])
			if err != nil {
				return err
			}
			if fe != nil {
				verr.Errors = append(verr.Errors, *fe)
			}
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func validateCityBatch(gdb *gorm.DB, ownerID string, batch []CityInput) error {
	verr := &apperr.ValidationError{}
	scope := newBatchScope()

	for i := range batch {
		batch[i].StateID = strings.TrimSpace(batch[i].StateID)
		if batch[i].StateID == "" {
			verr.Add(i, "city", "state_id", apperr.KindInvalid, "is required")
			continue
		}
		if _, err := resolveOwnedState(gdb, ownerID, batch[i].StateID); err != nil {
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) {
				verr.Add(i, "city", "state_id", apperr.KindInvalid, "state not found")
				continue
			}
			return err
		}
		fe, err := checkCity(gdb, scope, i, "city", &batch[i])
		if err != nil {
			return err
		}
		if fe != nil {
			verr.Errors = append(verr.Errors, *fe)
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// isUniqueViolation detects a constraint conflict surfaced by the store at
// commit time, e.g. from a race between two concurrent batches.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// conflictFromWrite maps a write error to the taxonomy: constraint
// violations become conflicts, anything else is a store write failure.
func conflictFromWrite(err error) error {
	if isUniqueViolation(err) {
		field := "record"
		// sqlite reports "UNIQUE constraint failed: table.column"
		if i := strings.LastIndex(err.Error(), "."); i >= 0 && i < len(err.Error())-1 {
			field = err.Error()[i+1:]
		}
		return &apperr.ConflictError{Field: field}
	}
	return apperr.StoreWrite(err)
}

// CreateCountryBatch validates the whole batch, then persists every tree in
// one transaction: countries first, then each country's states stamped with
// the generated country id, then each state's cities. If any node anywhere
// fails, nothing from any tree is written.
func CreateCountryBatch(gdb *gorm.DB, owner *models.User, batch []CountryInput) ([]models.Country, error) {
	if err := validateCountryBatch(gdb, batch); err != nil {
		return nil, err
	}

	created := make([]models.Country, 0, len(batch))
	err := gdb.Transaction(func(tx *gorm.DB) error {
		for _, in := range batch {
			country := models.Country{
				Name:        in.Name,
				CountryCode: in.CountryCode,
				CurrSymbol:  in.CurrSymbol,
				PhoneCode:   in.PhoneCode,
				OwnerID:     owner.ID,
				States:      []models.State{},
			}
			if err := tx.Create(&country).Error; err != nil {
				return conflictFromWrite(err)
			}
			for _, sin := range in.States {
				state := models.State{
					Name:      sin.Name,
					StateCode: sin.StateCode,
					GSTCode:   sin.GSTCode,
					CountryID: country.ID,
					Cities:    []models.City{},
				}
				if err := tx.Create(&state).Error; err != nil {
					return conflictFromWrite(err)
				}
				for _, cin := range sin.Cities {
					city := models.City{
						Name:         cin.Name,
						CityCode:     cin.CityCode,
						PhoneCode:    cin.PhoneCode,
						Population:   cin.Population,
						AvgAge:       cin.AvgAge,
						AdultMales:   cin.AdultMales,
						AdultFemales: cin.AdultFemales,
						StateID:      state.ID,
					}
					if err := tx.Create(&city).Error; err != nil {
						return conflictFromWrite(err)
					}
					city.StateName = state.Name
					state.Cities = append(state.Cities, city)
				}
				state.CountryName = country.Name
				state.OwnerName = owner.Email
				country.States = append(country.States, state)
			}
			country.OwnerName = owner.Email
			created = append(created, country)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateStateBatch is the state-rooted entry point: each tree is a state
// with nested cities attached to an existing country of the caller.
func CreateStateBatch(gdb *gorm.DB, owner *models.User, batch []StateInput) ([]models.State, error) {
	if err := validateStateBatch(gdb, owner.ID, batch); err != nil {
		return nil, err
	}

	created := make([]models.State, 0, len(batch))
	err := gdb.Transaction(func(tx *gorm.DB) error {
		for _, in := range batch {
			var country models.Country
			if err := tx.First(&country, "id = ?", in.CountryID).Error; err != nil {
				return apperr.StoreRead(err)
			}
			state := models.State{
				Name:      in.Name,
				StateCode: in.StateCode,
				GSTCode:   in.GSTCode,
				CountryID: country.ID,
				Cities:    []models.City{},
			}
			if err := tx.Create(&state).Error; err != nil {
				return conflictFromWrite(err)
			}
			for _, cin := range in.Cities {
				city := models.City{
					Name:         cin.Name,
					CityCode:     cin.CityCode,
					PhoneCode:    cin.PhoneCode,
					Population:   cin.Population,
					AvgAge:       cin.AvgAge,
					AdultMales:   cin.AdultMales,
					AdultFemales: cin.AdultFemales,
					StateID:      state.ID,
				}
				if err := tx.Create(&city).Error; err != nil {
					return conflictFromWrite(err)
				}
				city.StateName = state.Name
				state.Cities = append(state.Cities, city)
			}
			state.CountryName = country.Name
			state.OwnerName = owner.Email
			created = append(created, state)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateCityBatch is the city-rooted entry point: a flat batch, no nesting
// below city.
func CreateCityBatch(gdb *gorm.DB, owner *models.User, batch []CityInput) ([]models.City, error) {
	if err := validateCityBatch(gdb, owner.ID, batch); err != nil {
		return nil, err
	}

	created := make([]models.City, 0, len(batch))
	err := gdb.Transaction(func(tx *gorm.DB) error {
		for _, in := range batch {
			var state models.State
			if err := tx.First(&state, "id = ?", in.StateID).Error; err != nil {
				return apperr.StoreRead(err)
			}
			city := models.City{
				Name:         in.Name,
				CityCode:     in.CityCode,
				PhoneCode:    in.PhoneCode,
				Population:   in.Population,
				AvgAge:       in.AvgAge,
				AdultMales:   in.AdultMales,
				AdultFemales: in.AdultFemales,
				StateID:      state.ID,
			}
			if err := tx.Create(&city).Error; err != nil {
				return conflictFromWrite(err)
			}
			city.StateName = state.Name
			created = append(created, city)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
