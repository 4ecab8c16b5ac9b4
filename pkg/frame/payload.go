package frame

import "fmt"

// TaskRequest is the (usually empty) payload of a type-1 TaskReq frame.
type TaskRequest struct {
	Redirect string
}

// DecodeTaskRequest parses a TaskReq frame. All fields are optional.
func DecodeTaskRequest(f Frame) (TaskRequest, error) {
	if f.Type != TypeTaskReq {
		return TaskRequest{}, fmt.Errorf("frame: expected TaskReq, got type %d", f.Type)
	}

	tlvs, err := DecodeTLVs(f.Payload)
	if err != nil {
		return TaskRequest{}, err
	}

	m := indexTLVs(tlvs)

	return TaskRequest{Redirect: m.str(TagRedirect)}, nil
}

// EncodeTaskRequest builds a type-1 TaskReq frame.
func EncodeTaskRequest(r TaskRequest) Frame {
	var tlvs []TLV
	if r.Redirect != "" {
		tlvs = append(tlvs, putStr(TagRedirect, r.Redirect))
	}

	return Frame{Type: TypeTaskReq, Payload: EncodeTLVs(tlvs)}
}

// TaskResponse is the payload of a type-2 TaskResp frame: an issued task
// plus the advertised solver configuration.
type TaskResponse struct {
	TaskID     string
	Seed       string
	Exp        int64
	Bits       uint16
	Scope      string
	UAHash     string
	IPHash     string
	Workers    uint8
	WorkerType string
}

// EncodeTaskResponse builds a type-2 TaskResp frame.
func EncodeTaskResponse(r TaskResponse) Frame {
	tlvs := []TLV{
		putStr(TagTaskID, r.TaskID),
		putStr(TagSeed, r.Seed),
		putInt64(TagExp, r.Exp),
		putUint16(TagBits, r.Bits),
		putStr(TagScope, r.Scope),
		putStr(TagUAHash, r.UAHash),
	}

	if r.IPHash != "" {
		tlvs = append(tlvs, putStr(TagIPHash, r.IPHash))
	}

	tlvs = append(tlvs,
		putUint8(TagWorkers, r.Workers),
		putStr(TagWorkerType, r.WorkerType),
	)

	return Frame{Type: TypeTaskResp, Payload: EncodeTLVs(tlvs)}
}

// DecodeTaskResponse parses a type-2 TaskResp frame.
func DecodeTaskResponse(f Frame) (TaskResponse, error) {
	if f.Type != TypeTaskResp {
		return TaskResponse{}, fmt.Errorf("frame: expected TaskResp, got type %d", f.Type)
	}

	tlvs, err := DecodeTLVs(f.Payload)
	if err != nil {
		return TaskResponse{}, err
	}

	m := indexTLVs(tlvs)

	taskID, ok := m.strOK(TagTaskID)
	if !ok {
		return TaskResponse{}, fmt.Errorf("frame: TaskResp missing task_id")
	}

	seed, ok := m.strOK(TagSeed)
	if !ok {
		return TaskResponse{}, fmt.Errorf("frame: TaskResp missing seed")
	}

	exp, err := m.int64(TagExp)
	if err != nil {
		return TaskResponse{}, err
	}

	bits, err := m.uint16(TagBits)
	if err != nil {
		return TaskResponse{}, err
	}

	workers, err := m.uint8(TagWorkers)
	if err != nil {
		return TaskResponse{}, err
	}

	return TaskResponse{
		TaskID:     taskID,
		Seed:       seed,
		Exp:        exp,
		Bits:       bits,
		Scope:      m.str(TagScope),
		UAHash:     m.str(TagUAHash),
		IPHash:     m.str(TagIPHash),
		Workers:    workers,
		WorkerType: m.str(TagWorkerType),
	}, nil
}

// VerifyRequest is the payload of a type-3 VerifyReq frame: a candidate
// solution to a previously issued task.
type VerifyRequest struct {
	TaskID   string
	Nonce    string
	Redirect string
}

// EncodeVerifyRequest builds a type-3 VerifyReq frame.
func EncodeVerifyRequest(r VerifyRequest) Frame {
	tlvs := []TLV{
		putStr(TagTaskID, r.TaskID),
		putStr(TagNonce, r.Nonce),
	}

	if r.Redirect != "" {
		tlvs = append(tlvs, putStr(TagRedirect, r.Redirect))
	}

	return Frame{Type: TypeVerifyReq, Payload: EncodeTLVs(tlvs)}
}

// DecodeVerifyRequest parses a type-3 VerifyReq frame. task_id and nonce
// are required; redirect is optional.
func DecodeVerifyRequest(f Frame) (VerifyRequest, error) {
	if f.Type != TypeVerifyReq {
		return VerifyRequest{}, fmt.Errorf("frame: expected VerifyReq, got type %d", f.Type)
	}

	tlvs, err := DecodeTLVs(f.Payload)
	if err != nil {
		return VerifyRequest{}, err
	}

	m := indexTLVs(tlvs)

	taskID, ok := m.strOK(TagTaskID)
	if !ok {
		return VerifyRequest{}, fmt.Errorf("frame: VerifyReq missing task_id")
	}

	nonce, ok := m.strOK(TagNonce)
	if !ok {
		return VerifyRequest{}, fmt.Errorf("frame: VerifyReq missing nonce")
	}

	return VerifyRequest{TaskID: taskID, Nonce: nonce, Redirect: m.str(TagRedirect)}, nil
}

// VerifyResponse is the payload of a type-4 VerifyResp frame.
type VerifyResponse struct {
	Redirect string
}

// EncodeVerifyResponse builds a type-4 VerifyResp frame.
func EncodeVerifyResponse(r VerifyResponse) Frame {
	tlvs := []TLV{putStr(TagRedirect, r.Redirect)}

	return Frame{Type: TypeVerifyResp, Payload: EncodeTLVs(tlvs)}
}

// DecodeVerifyResponse parses a type-4 VerifyResp frame.
func DecodeVerifyResponse(f Frame) (VerifyResponse, error) {
	if f.Type != TypeVerifyResp {
		return VerifyResponse{}, fmt.Errorf("frame: expected VerifyResp, got type %d", f.Type)
	}

	tlvs, err := DecodeTLVs(f.Payload)
	if err != nil {
		return VerifyResponse{}, err
	}

	m := indexTLVs(tlvs)

	return VerifyResponse{Redirect: m.str(TagRedirect)}, nil
}

// ErrorMessage is the payload of a type-5 Error frame.
type ErrorMessage struct {
	Message string
}

// EncodeError builds a type-5 Error frame.
func EncodeError(msg string) Frame {
	tlvs := []TLV{putStr(TagErrorMessage, msg)}

	return Frame{Type: TypeError, Payload: EncodeTLVs(tlvs)}
}

// DecodeError parses a type-5 Error frame.
func DecodeError(f Frame) (ErrorMessage, error) {
	if f.Type != TypeError {
		return ErrorMessage{}, fmt.Errorf("frame: expected Error, got type %d", f.Type)
	}

	tlvs, err := DecodeTLVs(f.Payload)
	if err != nil {
		return ErrorMessage{}, err
	}

	m := indexTLVs(tlvs)

	return ErrorMessage{Message: m.str(TagErrorMessage)}, nil
}
