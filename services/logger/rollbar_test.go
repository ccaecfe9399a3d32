package logsvc

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/school"
)

func TestRollbarLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewRollbarLogger(log.New(buf, "", 0), &core.Config{Env: "TEST", Build: "test"})

	usr := school.User{ID: "2", Name: "Prof. Ana", Email: "ana@escola.com"}
	args := []interface{}{errors.New("disk full"), map[string]interface{}{"key": "state"}, usr}

	prepared := logger.prepare("saving state", args)
	assert.Equal(t, []interface{}{"saving state", args[0], args[1]}, prepared, "the user is reported as the person, not as data")

	logger.Warn("saving state", args...)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[WARN] saving state\n"))
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "user: 2 <ana@escola.com>")
}
