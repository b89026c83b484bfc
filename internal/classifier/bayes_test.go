package classifier

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

func trained(t *testing.T, opts ...Option) *NaiveBayes {
	t.Helper()
	m, err := TrainDefault(opts...)
	require.NoError(t, err)
	return m
}

func TestDefaultDataset(t *testing.T) {
	ds, err := DefaultDataset()
	require.NoError(t, err)
	assert.Len(t, ds.Labels(), len(domain.Intents))
	assert.NotEmpty(t, ds.Response(domain.IntentGreeting))
	assert.Empty(t, ds.Response(domain.IntentUnknown))
}

func TestLoadDataset_RejectsUnknownLabel(t *testing.T) {
	_, err := LoadDataset(strings.NewReader(`{"intents":{"smalltalk":{"examples":["hi"]}}}`))
	require.ErrorIs(t, err, ErrUnknownLabel)

	_, err = LoadDataset(strings.NewReader(`{"intents":{}}`))
	require.ErrorIs(t, err, ErrEmptyDataset)
}

func TestTrain_Empty(t *testing.T) {
	_, err := Train(nil)
	require.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Train(&Dataset{Intents: map[string]IntentData{"greeting": {}}})
	require.ErrorIs(t, err, ErrEmptyDataset)
}

func TestPredict_TrainingExamples(t *testing.T) {
	m := trained(t, WithMinProbability(0))
	cases := map[string]domain.Intent{
		"bom dia":                   domain.IntentGreeting,
		"qual o cardápio":           domain.IntentMenuInquiry,
		"quero pedir um hamburguer": domain.IntentOrderRequest,
		"cadê meu pedido":           domain.IntentOrderStatus,
		"posso pagar com pix":       domain.IntentPaymentInfo,
		"a pizza chegou fria":       domain.IntentComplaint,
		"qual a taxa de entrega":    domain.IntentDeliveryInfo,
		"tchau":                     domain.IntentGoodbye,
	}
	for text, want := range cases {
		got, p := m.Predict(text)
		assert.Equal(t, want, got, text)
		assert.Greater(t, p, 1.0/float64(len(domain.Intents)), text)
		assert.LessOrEqual(t, p, 1.0, text)
	}
}

func TestPredict_OutOfVocabulary(t *testing.T) {
	m := trained(t)
	got, p := m.Predict("xyzzy plugh")
	assert.Equal(t, domain.IntentUnknown, got)
	assert.Zero(t, p)
}

func TestPredict_ThresholdYieldsUnknown(t *testing.T) {
	m := trained(t, WithMinProbability(1))
	got, p := m.Predict("oi")
	assert.Equal(t, domain.IntentUnknown, got)
	assert.Greater(t, p, 0.0)
}

func TestClassifyIntent(t *testing.T) {
	m := trained(t)
	in, p, err := m.ClassifyIntent(context.Background(), "obrigado")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentThanks, in)
	assert.Greater(t, p, 0.0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = m.ClassifyIntent(ctx, "obrigado")
	require.ErrorIs(t, err, context.Canceled)

	var nilModel *NaiveBayes
	_, _, err = nilModel.ClassifyIntent(context.Background(), "oi")
	require.ErrorIs(t, err, ErrNotTrained)
}

func TestFeatures(t *testing.T) {
	f := features("Quero  Pizza")
	assert.Equal(t, map[string]int{"quero": 1, "pizza": 1, "quero pizza": 1}, f)
	assert.Nil(t, features("  ?! "))
}

func TestOptions(t *testing.T) {
	c := defaultConfig()
	WithSmoothing(-1)(&c)
	WithMinProbability(2)(&c)
	WithMaxFeatures(0)(&c)
	assert.Equal(t, defaultConfig(), c)

	WithSmoothing(0.5)(&c)
	WithMinProbability(0.4)(&c)
	WithMaxFeatures(10)(&c)
	assert.Equal(t, config{alpha: 0.5, minProb: 0.4, maxFeatures: 10}, c)
}
