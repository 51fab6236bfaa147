package services

import (
	"errors"
	"strings"

	"geo_atlas_go/apperr"
	"geo_atlas_go/models"

	"gorm.io/gorm"
)

// Single-record reads and updates for the hierarchy, plus the explicit
// cascading deletes. Access to nested entities always resolves through the
// owning country: a record under another owner's tree reads as missing.

// GetCountry loads an owned country with its full subtree.
func GetCountry(gdb *gorm.DB, ownerID, id string) (*models.Country, error) {
	var country models.Country
	err := gdb.Preload("States.Cities").Preload("Owner").
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&country).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "country", ID: id}
		}
		return nil, apperr.StoreRead(err)
	}
	country.OwnerName = country.Owner.Email
	return &country, nil
}

// GetState loads an owned state with its cities.
func GetState(gdb *gorm.DB, ownerID, id string) (*models.State, error) {
	var state models.State
	err := gdb.Preload("Cities").Preload("Country.Owner").
		Joins("JOIN countries ON countries.id = states.country_id").
		Where("states.id = ? AND countries.owner_id = ?", id, ownerID).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "state", ID: id}
		}
		return nil, apperr.StoreRead(err)
	}
	state.CountryName = state.Country.Name
	state.OwnerName = state.Country.Owner.Email
	return &state, nil
}

// GetCity loads an owned city.
func GetCity(gdb *gorm.DB, ownerID, id string) (*models.City, error) {
	var city models.City
	err := gdb.Preload("State").
		Joins("JOIN states ON states.id = cities.state_id").
		Joins("JOIN countries ON countries.id = states.country_id").
		Where("cities.id = ? AND countries.owner_id = ?", id, ownerID).
		First(&city).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "city", ID: id}
		}
		return nil, apperr.StoreRead(err)
	}
	city.StateName = city.State.Name
	return &city, nil
}

// CountryUpdate carries a partial country mutation; nil fields are left
// untouched. PUT callers require every field to be present.
type CountryUpdate struct {
	Name        *string `json:"name"`
	CountryCode *string `json:"country_code"`
	CurrSymbol  *string `json:"curr_symbol"`
	PhoneCode   *string `json:"phone_code"`
}

// UpdateCountry applies a single-record mutation, revalidating the global
// uniqueness scope against everything except the record itself.
func UpdateCountry(gdb *gorm.DB, ownerID, id string, in *CountryUpdate, full bool) (*models.Country, error) {
	country, err := GetCountry(gdb, ownerID, id)
	if err != nil {
		return nil, err
	}

	if full && (in.Name == nil || in.CountryCode == nil || in.CurrSymbol == nil || in.PhoneCode == nil) {
		verr := &apperr.ValidationError{}
		for field, v := range map[string]*string{
			"name": in.Name, "country_code": in.CountryCode,
			"curr_symbol": in.CurrSymbol, "phone_code": in.PhoneCode,
		} {
			if v == nil {
				verr.Add(0, "country", field, apperr.KindInvalid, "is required")
			}
		}
		return nil, verr
	}

	apply := func(dst *string, src *string, field string, maxLen int, uniqueColumn string) error {
		if src == nil {
			return nil
		}
		value := strings.TrimSpace(*src)
		if value == "" {
			return (&apperr.ValidationError{}).Add(0, "country", field, apperr.KindInvalid, "is required")
		}
		if len(value) > maxLen {
			return (&apperr.ValidationError{}).Add(0, "country", field, apperr.KindInvalid, "too long")
		}
		if uniqueColumn != "" && value != *dst {
			exists, err := existsWhere(gdb, &models.Country{}, uniqueColumn+" = ? AND id <> ?", value, id)
			if err != nil {
				return err
			}
			if exists {
				return &apperr.ConflictError{Field: field, Value: value}
			}
		}
		*dst = value
		return nil
	}

	if err := apply(&country.Name, in.Name, "name", 100, "name"); err != nil {
		return nil, err
	}
	if err := apply(&country.CountryCode, in.CountryCode, "country_code", 3, "country_code"); err != nil {
		return nil, err
	}
	if err := apply(&country.CurrSymbol, in.CurrSymbol, "curr_symbol", 5, ""); err != nil {
		return nil, err
	}
	if err := apply(&country.PhoneCode, in.PhoneCode, "phone_code", 10, "phone_code"); err != nil {
		return nil, err
	}

	if err := gdb.Save(country).Error; err != nil {
		return nil, conflictFromWrite(err)
	}
	return country, nil
}

// StateUpdate carries a partial state mutation.
type StateUpdate struct {
	Name      *string `json:"name"`
	StateCode *string `json:"state_code"`
	GSTCode   *string `json:"gst_code"`
}

func UpdateState(gdb *gorm.DB, ownerID, id string, in *StateUpdate, full bool) (*models.State, error) {
	state, err := GetState(gdb, ownerID, id)
	if err != nil {
		return nil, err
	}

	if full && (in.Name == nil || in.StateCode == nil || in.GSTCode == nil) {
		verr := &apperr.ValidationError{}
		for field, v := range map[string]*string{
			"name": in.Name, "state_code": in.StateCode, "gst_code": in.GSTCode,
		} {
			if v == nil {
				verr.Add(0, "state", field, apperr.KindInvalid, "is required")
			}
		}
		return nil, verr
	}

	if in.Name != nil {
		value := strings.TrimSpace(*in.Name)
		if value == "" || len(value) > 100 {
			return nil, (&apperr.ValidationError{}).Add(0, "state", "name", apperr.KindInvalid, "must be 1-100 characters")
		}
		if value != state.Name {
			exists, err := existsWhere(gdb, &models.State{}, "country_id = ? AND name = ? AND id <> ?", state.CountryID, value, id)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, &apperr.ConflictError{Field: "name", Value: value}
			}
			state.Name = value
		}
	}
	if in.StateCode != nil {
		value := strings.TrimSpace(*in.StateCode)
		if value == "" || len(value) > 10 {
			return nil, (&apperr.ValidationError{}).Add(0, "state", "state_code", apperr.KindInvalid, "must be 1-10 characters")
		}
		state.StateCode = value
	}
	if in.GSTCode != nil {
		value := strings.TrimSpace(*in.GSTCode)
		if value == "" || len(value) > 15 {
			return nil, (&apperr.ValidationError{}).Add(0, "state", "gst_code", apperr.KindInvalid, "must be 1-15 characters")
		}
		if value != state.GSTCode {
			exists, err := existsWhere(gdb, &models.State{}, "gst_code = ? AND id <> ?", value, id)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, &apperr.ConflictError{Field: "gst_code", Value: value}
			}
			state.GSTCode = value
		}
	}

	if err := gdb.Save(state).Error; err != nil {
		return nil, conflictFromWrite(err)
	}
	return state, nil
}

// CityUpdate carries a partial city mutation.
type CityUpdate struct {
	Name         *string  `json:"name"`
	CityCode     *string  `json:"city_code"`
	PhoneCode    *string  `json:"phone_code"`
	Population   *int     `json:"population"`
	AvgAge       *float64 `json:"avg_age"`
	AdultMales   *int     `json:"adult_males"`
	AdultFemales *int     `json:"adult_females"`
}

func UpdateCity(gdb *gorm.DB, ownerID, id string, in *CityUpdate, full bool) (*models.City, error) {
	city, err := GetCity(gdb, ownerID, id)
	if err != nil {
		return nil, err
	}

	if full && (in.Name == nil || in.CityCode == nil || in.PhoneCode == nil ||
		in.Population == nil || in.AvgAge == nil || in.AdultMales == nil || in.AdultFemales == nil) {
		return nil, (&apperr.ValidationError{}).Add(0, "city", "body", apperr.KindInvalid, "all fields are required for a full update")
	}

	if in.Name != nil {
		value := strings.TrimSpace(*in.Name)
		if value == "" || len(value) > 100 {
			return nil, (&apperr.ValidationError{}).Add(0, "city", "name", apperr.KindInvalid, "must be 1-100 characters")
		}
		city.Name = value
	}
	if in.CityCode != nil {
		value := strings.TrimSpace(*in.CityCode)
		if value == "" || len(value) > 10 {
			return nil, (&apperr.ValidationError{}).Add(0, "city", "city_code", apperr.KindInvalid, "must be 1-10 characters")
		}
		if value != city.CityCode {
			exists, err := existsWhere(gdb, &models.City{}, "city_code = ? AND id <> ?", value, id)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, &apperr.ConflictError{Field: "city_code", Value: value}
			}
			city.CityCode = value
		}
	}
	if in.PhoneCode != nil {
		value := strings.TrimSpace(*in.PhoneCode)
		if value == "" || len(value) > 10 {
			return nil, (&apperr.ValidationError{}).Add(0, "city", "phone_code", apperr.KindInvalid, "must be 1-10 characters")
		}
		if value != city.PhoneCode {
			exists, err := existsWhere(gdb, &models.City{}, "phone_code = ? AND id <> ?", value, id)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, &apperr.ConflictError{Field: "phone_code", Value: value}
			}
			city.PhoneCode = value
		}
	}
	if in.Population != nil {
		city.Population = *in.Population
	}
	if in.AvgAge != nil {
		city.AvgAge = *in.AvgAge
	}
	if in.AdultMales != nil {
		city.AdultMales = *in.AdultMales
	}
	if in.AdultFemales != nil {
		city.AdultFemales = *in.AdultFemales
	}

	// The structural invariant must hold after any combination of changes
	if city.Population <= city.AdultMales+city.AdultFemales {
		return nil, (&apperr.ValidationError{}).Add(0, "city", "population", apperr.KindInvalid,
			"population must be greater than adult_males + adult_females")
	}

	if err := gdb.Save(city).Error; err != nil {
		return nil, conflictFromWrite(err)
	}
	return city, nil
}

// DeleteCountry removes a country and everything beneath it in one
// transaction. The cascade is explicit, not a storage trigger.
func DeleteCountry(gdb *gorm.DB, ownerID, id string) error {
	if _, err := GetCountry(gdb, ownerID, id); err != nil {
		return err
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("state_id IN (?)",
			tx.Model(&models.State{}).Select("id").Where("country_id = ?", id),
		).Delete(&models.City{}).Error; err != nil {
			return apperr.StoreWrite(err)
		}
		if err := tx.Where("country_id = ?", id).Delete(&models.State{}).Error; err != nil {
			return apperr.StoreWrite(err)
		}
		if err := tx.Delete(&models.Country{}, "id = ?", id).Error; err != nil {
			return apperr.StoreWrite(err)
		}
		return nil
	})
}

// DeleteState removes a state and its cities in one transaction.
func DeleteState(gdb *gorm.DB, ownerID, id string) error {
	if _, err := GetState(gdb, ownerID, id); err != nil {
		return err
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("state_id = ?", id).Delete(&models.City{}).Error; err != nil {
			return apperr.StoreWrite(err)
		}
		if err := tx.Delete(&models.State{}, "id = ?", id).Error; err != nil {
			return apperr.StoreWrite(err)
		}
		return nil
	})
}

// DeleteCity removes a single city.
func DeleteCity(gdb *gorm.DB, ownerID, id string) error {
	if _, err := GetCity(gdb, ownerID, id); err != nil {
		return err
	}
	if err := gdb.Delete(&models.City{}, "id = ?", id).Error; err != nil {
		return apperr.StoreWrite(err)
	}
	return nil
}
