package memkv

import (
	"testing"

	"github.com/saber-pedagogico/saber/storage/kvtest"
)

func TestStorage(t *testing.T) {
	kvtest.Run(t, New())
}
