package relay

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "brave", "calm", "swift", "silent", "fuzzy", "merry",
	"lazy", "eager", "clever", "quiet", "rapid", "nimble", "bold", "witty", "mellow", "zesty",
}

var creatures = []string{
	"kitten", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster", "beaver", "narwhal",
	"penguin", "flamingo", "pelican", "toucan", "parrot", "dolphin", "walrus", "lemur", "gecko", "badger",
	"dragon", "griffin", "phoenix", "unicorn", "sprite", "gnome", "yeti", "kraken", "sphinx", "pixie",
}

var things = []string{
	"waffle", "ramen", "taco", "curry", "dumpling", "noodle", "muffin", "biscuit", "toffee", "cocoa",
	"lantern", "pebble", "comet", "nebula", "rocket", "orbit", "canyon", "meadow", "willow", "ember",
	"compiler", "pointer", "closure", "lambda", "socket", "kernel", "bitmap", "cursor", "buffer", "module",
}

// newRoomID returns a memorable id such as "sleepy-otter-lambda" that
// taken does not report as in use.
func newRoomID(taken func(string) bool) string {
	for {
		id := fmt.Sprintf("%s-%s-%s", pick(adjectives), pick(creatures), pick(things))
		if !taken(id) {
			return id
		}
	}
}

func pick(words []string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return words[n.Int64()]
}
