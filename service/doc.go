// Package service runs matching engines behind a single-writer command
// queue, one per instrument, and persists their events to the outbox.
//
// The engine itself never blocks and never logs; everything that talks
// to the outside world (outbox, metrics, logging) lives here.
package service
