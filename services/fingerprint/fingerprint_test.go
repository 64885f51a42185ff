package fingerprint

import (
	"net/http/httptest"
	"testing"

	"github.com/novabank/onboard/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(chromeUA, "en-GB", "gzip, deflate, br")
	b := Generate(chromeUA, "en-GB", "gzip, deflate, br")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestGenerate_DiffersPerInput(t *testing.T) {
	base := Generate(chromeUA, "en-GB", "gzip")

	assert.NotEqual(t, base, Generate(chromeUA+" Edge", "en-GB", "gzip"))
	assert.NotEqual(t, base, Generate(chromeUA, "fr-FR", "gzip"))
	assert.NotEqual(t, base, Generate(chromeUA, "en-GB", "br"))
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept-Language", "en-GB")
	req.Header.Set("Accept-Encoding", "gzip")

	assert.Equal(t, Generate(chromeUA, "en-GB", "gzip"), FromRequest(req))
}

func TestClassify(t *testing.T) {
	t.Run("desktop chrome", func(t *testing.T) {
		browser, os, class := classify(chromeUA)
		assert.Contains(t, browser, "Chrome")
		assert.Equal(t, "Windows", os)
		assert.Equal(t, "Desktop", class)
	})

	t.Run("empty user agent", func(t *testing.T) {
		browser, os, class := classify("")
		assert.Equal(t, "Unknown Browser", browser)
		assert.Equal(t, "Unknown OS", os)
		assert.Equal(t, "Unknown", class)
	})
}

func TestUpsertDeviceRecord(t *testing.T) {
	db := testutils.SetupTestDB(t, &DeviceRecord{})

	fp := Generate(chromeUA, "en-GB", "gzip")
	require.NoError(t, UpsertDeviceRecord(db, 1, "customer", fp, "10.0.0.1", chromeUA))

	// Second upsert for the same principal/device must not add a row.
	require.NoError(t, UpsertDeviceRecord(db, 1, "customer", fp, "10.0.0.2", chromeUA))

	var records []DeviceRecord
	require.NoError(t, db.Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, "10.0.0.2", records[0].LastIP)
	assert.Equal(t, "Desktop", records[0].DeviceClass)

	// A different fingerprint is a new device row.
	require.NoError(t, UpsertDeviceRecord(db, 1, "customer", "other-fp", "10.0.0.3", chromeUA))
	require.NoError(t, db.Find(&records).Error)
	assert.Len(t, records, 2)
}
