// Package challenge implements the task/verify HTTP endpoints, the
// challenge page renderer, and embedded static asset serving.
package challenge

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ethpandaops/cowcatwaf/pkg/frame"
	"github.com/ethpandaops/cowcatwaf/pkg/rules"
	"github.com/ethpandaops/cowcatwaf/pkg/taskstore"
)

// TaskTTL is how long an issued task remains solvable.
const TaskTTL = 120 * time.Second

// IssueParams describes a request for a fresh task.
type IssueParams struct {
	Difficulty int // 0-10, clamped before bits are derived
	Host       string
	UAHash     string
	IPHash     string
	Workers    int
	WorkerType string
}

// IssueTask creates a task, inserts it into store, and returns the
// task ID alongside the XOR-masked wire bytes of its type-2 TaskResp frame.
func IssueTask(store *taskstore.Store, p IssueParams) (taskID string, wire []byte, err error) {
	taskID, err = randomHex(16)
	if err != nil {
		return "", nil, fmt.Errorf("challenge: generate task id: %w", err)
	}

	seed, err := randomBase64(32)
	if err != nil {
		return "", nil, fmt.Errorf("challenge: generate seed: %w", err)
	}

	bits := rules.Clamp(p.Difficulty) * 4
	exp := time.Now().Add(TaskTTL).Unix()

	scope := p.Host
	if scope == "" {
		scope = "unknown"
	}

	store.Insert(taskID, &taskstore.Task{
		Seed:       seed,
		Exp:        exp,
		Bits:       bits,
		Scope:      scope,
		UAHash:     p.UAHash,
		IPHash:     p.IPHash,
		WorkerType: p.WorkerType,
	})

	resp := frame.TaskResponse{
		TaskID:     taskID,
		Seed:       seed,
		Exp:        exp,
		Bits:       uint16(bits),
		Scope:      scope,
		UAHash:     p.UAHash,
		IPHash:     p.IPHash,
		Workers:    uint8(p.Workers),
		WorkerType: p.WorkerType,
	}

	wire = frame.Obfuscate(frame.Encode(frame.EncodeTaskResponse(resp)))

	return taskID, wire, nil
}

// EffectiveBits returns clamp(difficulty, 0, 10) * 4, the bit count used
// both for task issuance and for the canonical preimage difficulty.
func EffectiveBits(difficulty int) int {
	return rules.Clamp(difficulty) * 4
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

func randomBase64(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
