package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tabaudit/internal/core/domain"
	"tabaudit/internal/core/port"
)

func sampleReport() *port.DatasetReport {
	return &port.DatasetReport{
		RunID:       "run-42",
		Engine:      "sqlite",
		GeneratedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Columns: []port.ColumnReport{
			{
				Name:          "zulu",
				Dtype:         "float",
				MissingValues: port.MissingValues{NMissing: 1, PctMissing: 25.0},
				NumericOverview: &port.NumericOverview{
					TotalRows:  4,
					NNonFinite: 1,
					Outliers: &port.Outliers{
						Method:         domain.MethodIQR,
						LowerThreshold: -1.5,
						UpperThreshold: 8.5,
						NFiniteUsed:    3,
						NAboveUpper:    1,
					},
				},
			},
			{
				Name:          "alpha",
				Dtype:         "string",
				MissingValues: port.MissingValues{NMissing: 0, PctMissing: 0},
				Uniqueness:    &port.Uniqueness{NUnique: 4, PctUnique: 100.0},
			},
		},
	}
}

func TestEncodeJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, sampleReport()))

	var tree map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &tree))

	assert.Equal(t, "run-42", tree["run_id"])
	assert.Equal(t, "sqlite", tree["engine"])
	assert.Equal(t, "2026-08-25T12:00:00Z", tree["generated_at"])

	columns := tree["columns"].(map[string]any)
	zulu := columns["zulu"].(map[string]any)
	assert.Equal(t, "float", zulu["dtype"])

	issues := zulu["issues"].(map[string]any)
	missing := issues["missing_values"].(map[string]any)
	assert.Equal(t, float64(1), missing["n_missing"])
	assert.Equal(t, 25.0, missing["pct_missing"])

	overview := issues["numeric_overview"].(map[string]any)
	assert.Equal(t, float64(4), overview["total_rows"])
	outliers := overview["outliers"].(map[string]any)
	assert.Equal(t, "IQR_1.5", outliers["method"])
	assert.Equal(t, -1.5, outliers["lower_threshold"])

	assert.Nil(t, zulu["issues"].(map[string]any)["uniqueness"], "check did not apply")

	alpha := columns["alpha"].(map[string]any)
	alphaIssues := alpha["issues"].(map[string]any)
	assert.Nil(t, alphaIssues["numeric_overview"])
	uniq := alphaIssues["uniqueness"].(map[string]any)
	assert.Equal(t, 100.0, uniq["pct_unique"])
}

func TestEncodeJSON_ColumnOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, sampleReport()))

	out := buf.String()
	assert.Less(t, strings.Index(out, `"zulu"`), strings.Index(out, `"alpha"`),
		"columns serialize in dataset order, not lexical order")
}

func TestEncodeYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeYAML(&buf, sampleReport()))

	var tree map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &tree))

	assert.Equal(t, "run-42", tree["run_id"])
	columns := tree["columns"].(map[string]any)
	require.Contains(t, columns, "zulu")
	require.Contains(t, columns, "alpha")

	alpha := columns["alpha"].(map[string]any)
	issues := alpha["issues"].(map[string]any)
	overview, present := issues["numeric_overview"]
	assert.True(t, present)
	assert.Nil(t, overview, "inapplicable check is an explicit null, not omitted")

	// Order is preserved textually.
	out := buf.String()
	assert.Less(t, strings.Index(out, "zulu:"), strings.Index(out, "alpha:"))
}

func TestEncode_NonFiniteBecomesNull(t *testing.T) {
	t.Parallel()

	rep := sampleReport()
	rep.Columns[0].NumericOverview.Outliers.UpperThreshold = math.Inf(1)
	rep.Columns[0].MissingValues.PctMissing = math.NaN()

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, rep), "non-finite floats must not break JSON encoding")

	var tree map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &tree))

	zulu := tree["columns"].(map[string]any)["zulu"].(map[string]any)
	issues := zulu["issues"].(map[string]any)
	assert.Nil(t, issues["missing_values"].(map[string]any)["pct_missing"])
	assert.Nil(t, issues["numeric_overview"].(map[string]any)["outliers"].(map[string]any)["upper_threshold"])
}

func TestEncode_NilOutliersBlock(t *testing.T) {
	t.Parallel()

	rep := sampleReport()
	rep.Columns[0].NumericOverview.Outliers = nil

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, rep))

	var tree map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &tree))

	zulu := tree["columns"].(map[string]any)["zulu"].(map[string]any)
	overview := zulu["issues"].(map[string]any)["numeric_overview"].(map[string]any)
	outliers, present := overview["outliers"]
	assert.True(t, present)
	assert.Nil(t, outliers, "no finite values is distinct from zero outliers")
}
