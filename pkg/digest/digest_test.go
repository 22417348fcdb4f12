package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

func acme() *models.CompanyRecord {
	return &models.CompanyRecord{
		CompanyName:    "Acme Ltd",
		CompanyNumber:  "123",
		GeneralDetails: &models.GeneralDetails{EntityStatus: "Registered"},
		Directors:      &models.Parties{Current: []models.Party{{Name: "Jane Doe"}}},
	}
}

func TestCanonical_SortsKeysAndDropsNulls(t *testing.T) {
	data := map[string]any{
		"b": 1,
		"a": map[string]any{"z": "x", "y": nil},
		"c": nil,
		"d": map[string]any{"only": nil},
		"e": []any{nil, "v"},
	}

	assert.Equal(t, `{"a":{"z":"x"},"b":1,"e":[{},"v"]}`, Canonical(data, nil))
}

func TestHasher_KeyOrderAndNullsDoNotMatter(t *testing.T) {
	h := NewHasher(nil)

	a, err := h.JSON([]byte(`{"company_number":"123","company_name":"Acme Ltd","company_type":null}`))
	require.NoError(t, err)
	b, err := h.JSON([]byte(`{"company_name":"Acme Ltd","company_number":"123"}`))
	require.NoError(t, err)
	c, err := h.JSON([]byte(`{"company_name":"Acme Ltd","company_number":"123","general_details":{"entity_status":null}}`))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
	assert.Len(t, a, 64)
}

func TestHasher_DetectsChanges(t *testing.T) {
	h := NewHasher(nil)
	before := acme()
	after := acme()
	after.GeneralDetails.EntityStatus = "Struck Off"

	same, err := h.Equal(before, acme())
	require.NoError(t, err)
	assert.True(t, same)

	same, err = h.Equal(before, after)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestHasher_NumbersKeepPrecision(t *testing.T) {
	h := NewHasher(nil)

	a, err := h.JSON([]byte(`{"total_shares":9007199254740993}`))
	require.NoError(t, err)
	b, err := h.JSON([]byte(`{"total_shares":9007199254740992}`))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_Exclusions(t *testing.T) {
	h := NewHasher(map[string]bool{"filings": true, "general_details.annual_filing_month": true})

	before := acme()
	after := acme()
	after.Filings = []models.Filing{{FilingName: "Annual Return 2024"}}
	after.GeneralDetails.AnnualFilingMonth = "June"

	same, err := h.Equal(before, after)
	require.NoError(t, err)
	assert.True(t, same)

	after.GeneralDetails.EntityStatus = "Removed"
	same, err = h.Equal(before, after)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestHasher_NilRecord(t *testing.T) {
	h := NewHasher(nil)

	nilDigest, err := h.Record(nil)
	require.NoError(t, err)
	assert.Equal(t, Sum("null"), nilDigest)

	acmeDigest, err := h.Record(acme())
	require.NoError(t, err)
	assert.NotEqual(t, nilDigest, acmeDigest)
}
