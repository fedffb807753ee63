package state

import "time"

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		Placeholder: []byte(`<svg viewBox="0 0 400 400" xmlns="http://www.w3.org/2000/svg">
  <rect x="0" y="0" width="400" height="400" fill="#eeeeee"/>
  <path d="M120 270 L180 190 L220 240 L250 210 L290 270 Z" fill="#bbbbbb"/>
  <path d="M262 150 A18 18 0 1 1 261.9 150" fill="#bbbbbb"/>
  <path d="M100 100 H300 V300 H100 Z" fill="none" stroke="#999999" stroke-width="4"/>
</svg>`),
		QuoteOrnament: []byte(`<svg viewBox="0 0 500 60" xmlns="http://www.w3.org/2000/svg">
  <path d="
    M20 30 H200
    C220 5, 280 5, 300 30
    C280 55, 220 55, 200 30
    M300 30 H480
  "
  fill="none" stroke="white" stroke-width="2"/>
</svg>`),
	}
}
