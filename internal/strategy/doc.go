// Package strategy implements backend selection over a health snapshot.
//
// The only strategy is cyclic round-robin: a shared cursor advances one
// index per attempt and unhealthy indices are skipped. Selection is
// deterministic and never touches the network.
package strategy
