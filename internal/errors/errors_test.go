package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := New(KindDegraded, "no ethernet interface")
	assert.Equal(t, "no ethernet interface", err.Error())

	wrapped := Wrap(err, KindFatal, "setup failed")
	assert.Equal(t, "setup failed: no ethernet interface", wrapped.Error())
	assert.Nil(t, Wrap(nil, KindFatal, "nothing"))
}

func TestGetKind(t *testing.T) {
	err := New(KindTransient, "probe timed out")
	assert.Equal(t, KindTransient, GetKind(err))
	assert.Equal(t, KindFatal, GetKind(Wrap(err, KindFatal, "outer")))
	assert.Equal(t, KindUnknown, GetKind(errors.New("std error")))
	assert.True(t, IsFatal(Errorf(KindFatal, "no %s", "wifi")))
}

func TestSentinelSurvivesWrapping(t *testing.T) {
	sentinel := New(KindDegraded, "no ethernet interface")
	wrapped := Wrapf(sentinel, KindDegraded, "reconcile %s", "nat")

	assert.True(t, Is(wrapped, sentinel))
	assert.False(t, Is(wrapped, New(KindFatal, "no ethernet interface")))
}
