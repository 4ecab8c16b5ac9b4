package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tlvs := []TLV{
		putStr(TagTaskID, "abc123"),
		putInt64(TagExp, 1700000000),
		putUint16(TagBits, 4),
	}

	f := Frame{Type: TypeTaskResp, Payload: EncodeTLVs(tlvs)}
	wire := Encode(f)

	decoded, err := Decode(wire)
	require.NoError(t, err)
	require.Equal(t, f.Type, decoded.Type)
	require.Equal(t, f.Payload, decoded.Payload)
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	_, err := Decode([]byte{'C', 'W', 1})
	require.Error(t, err)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	wire := Encode(Frame{Type: TypeTaskReq})
	wire[0] = 'X'
	_, err := Decode(wire)
	require.Error(t, err)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	wire := Encode(Frame{Type: TypeTaskReq})
	wire[2] = 9
	_, err := Decode(wire)
	require.Error(t, err)
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	wire := Encode(Frame{Type: TypeTaskReq, Payload: []byte("hello")})
	wire = append(wire, 0xff) // trailing garbage not reflected in declared length
	_, err := Decode(wire)
	require.Error(t, err)
}

func TestTLVRoundTrip(t *testing.T) {
	tlvs := []TLV{
		{Tag: TagTaskID, Value: []byte("task-1")},
		{Tag: TagBits, Value: []byte{0x00, 0x04}},
		{Tag: TagScope, Value: []byte("example.com")},
	}

	encoded := EncodeTLVs(tlvs)
	decoded, err := DecodeTLVs(encoded)
	require.NoError(t, err)
	require.Equal(t, tlvs, decoded)
}

func TestDecodeTLVsRejectsTruncatedHeader(t *testing.T) {
	_, err := DecodeTLVs([]byte{TagTaskID, 0x00})
	require.Error(t, err)
}

func TestDecodeTLVsRejectsValueOverrun(t *testing.T) {
	// declares a 10-byte value but supplies none
	buf := []byte{TagTaskID, 0x00, 0x0a}
	_, err := DecodeTLVs(buf)
	require.Error(t, err)
}

func TestTaskResponseRoundTrip(t *testing.T) {
	resp := TaskResponse{
		TaskID:     "0123456789abcdef0123456789abcdef",
		Seed:       "c2VlZC12YWx1ZQ",
		Exp:        1700000120,
		Bits:       12,
		Scope:      "example.com",
		UAHash:     "dWFoYXNo",
		IPHash:     "aXBoYXNo",
		Workers:    4,
		WorkerType: "wasm",
	}

	f := EncodeTaskResponse(resp)
	wire := Encode(f)

	decodedFrame, err := Decode(wire)
	require.NoError(t, err)

	decoded, err := DecodeTaskResponse(decodedFrame)
	require.NoError(t, err)
	require.Equal(t, resp, decoded)
}

func TestTaskResponseRoundTripNoIPHash(t *testing.T) {
	resp := TaskResponse{
		TaskID:     "t",
		Seed:       "s",
		Exp:        1,
		Bits:       0,
		Scope:      "unknown",
		UAHash:     "u",
		Workers:    1,
		WorkerType: "native",
	}

	decoded, err := DecodeTaskResponse(EncodeTaskResponse(resp))
	require.NoError(t, err)
	require.Equal(t, resp, decoded)
}

func TestVerifyRequestRequiresTaskIDAndNonce(t *testing.T) {
	f := Frame{Type: TypeVerifyReq, Payload: EncodeTLVs([]TLV{putStr(TagNonce, "42")})}
	_, err := DecodeVerifyRequest(f)
	require.Error(t, err)
}

func TestVerifyRequestRoundTrip(t *testing.T) {
	req := VerifyRequest{TaskID: "task-1", Nonce: "123456", Redirect: "/page?x=1"}
	decoded, err := DecodeVerifyRequest(EncodeVerifyRequest(req))
	require.NoError(t, err)
	require.Equal(t, req, decoded)
}

func TestObfuscateIsInvolution(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte{},
		[]byte("a"),
		[]byte("exactly21bytes!!ccccc"),
		[]byte("this is a much longer payload that wraps the key several times over"),
	}

	for _, c := range cases {
		masked := Obfuscate(c)
		require.Equal(t, c, Obfuscate(masked))
	}
}

func TestMaskedType(t *testing.T) {
	require.True(t, MaskedType(TypeTaskResp))
	require.True(t, MaskedType(TypeVerifyReq))
	require.False(t, MaskedType(TypeTaskReq))
	require.False(t, MaskedType(TypeVerifyResp))
	require.False(t, MaskedType(TypeError))
}
