package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePresentationExchangeConstFilter(t *testing.T) {
	pd := &PresentationDefinition{
		ID: "pd-1",
		InputDescriptors: []InputDescriptor{
			{
				ID: "citizenship",
				Constraints: Constraints{
					Fields: []Field{
						{Path: []string{"$.nationality"}, Filter: &Filter{Const: "SE"}},
					},
				},
			},
		},
	}
	r := employeeRecord()
	claims := map[string]any{"nationality": "SE"}

	matches, err := EvaluatePresentationExchange(pd, map[*Record]map[string]any{r: claims})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "citizenship", matches[0].QueryID)
}

func TestEvaluatePresentationExchangePatternFilter(t *testing.T) {
	pd := &PresentationDefinition{
		InputDescriptors: []InputDescriptor{
			{
				ID: "email",
				Constraints: Constraints{
					Fields: []Field{
						{Path: []string{"$.email"}, Filter: &Filter{Pattern: `^\S+@\S+$`}},
					},
				},
			},
		},
	}
	r := employeeRecord()
	claims := map[string]any{"email": "not-an-email"}

	_, err := EvaluatePresentationExchange(pd, map[*Record]map[string]any{r: claims})
	assert.Error(t, err)
}

func TestEvaluatePresentationExchangeDateFormat(t *testing.T) {
	pd := &PresentationDefinition{
		InputDescriptors: []InputDescriptor{
			{
				ID: "dob",
				Constraints: Constraints{
					Fields: []Field{
						{Path: []string{"$.birth_date"}, Filter: &Filter{Format: "date"}},
					},
				},
			},
		},
	}
	r := employeeRecord()
	claims := map[string]any{"birth_date": "1990-01-01"}

	matches, err := EvaluatePresentationExchange(pd, map[*Record]map[string]any{r: claims})
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestEvaluatePresentationExchangeOptionalFieldMissing(t *testing.T) {
	pd := &PresentationDefinition{
		InputDescriptors: []InputDescriptor{
			{
				ID: "optional-check",
				Constraints: Constraints{
					Fields: []Field{
						{Path: []string{"$.nope"}, Optional: true},
					},
				},
			},
		},
	}
	r := employeeRecord()
	claims := map[string]any{}

	matches, err := EvaluatePresentationExchange(pd, map[*Record]map[string]any{r: claims})
	require.NoError(t, err)
	require.Len(t, matches, 1)
}
