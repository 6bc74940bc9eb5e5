package pkg

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTPIsFixedLengthDigits(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := NewOTP()
		require.NoError(t, err)
		require.Len(t, code, OTPLength)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9', code)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 150)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	signer := NewTokenSigner("s3cret")

	a, exp, err := signer.GenerateSessionToken(42, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	b, _, err := signer.GenerateSessionToken(42, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "each session gets its own token")

	claims, err := signer.ParseSessionToken(a)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)

	_, err = NewTokenSigner("other").ParseSessionToken(a)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	expired, _, err := signer.GenerateSessionToken(42, -time.Minute)
	require.NoError(t, err)
	_, err = signer.ParseSessionToken(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestThumbnailFitsBox(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1600, 800))
	src.Set(10, 10, color.White)
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, src))

	var out bytes.Buffer
	w, h, err := Thumbnail(&in, &out)
	require.NoError(t, err)
	assert.Equal(t, 1600, w)
	assert.Equal(t, 800, h)

	thumb, err := jpeg.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, 400, thumb.Bounds().Dx())
	assert.Equal(t, 200, thumb.Bounds().Dy())

	_, _, err = Thumbnail(strings.NewReader("not an image"), &out)
	assert.Error(t, err)
}

func TestUploadNames(t *testing.T) {
	orig, thumb := UploadNames(".JPG")
	assert.True(t, strings.HasSuffix(orig, ".jpg"))
	assert.Equal(t, strings.TrimSuffix(orig, ".jpg")+"_thumb.jpg", thumb)
}

func TestInvitationHTML(t *testing.T) {
	body := InvitationHTML(Invitation{
		CollectionTitle:   "<Tokyo>",
		InviterName:       "owner",
		Code:              "123456",
		NeedsRegistration: true,
		JoinURL:           "https://lens.local/collections/x/join",
		ValidHours:        24,
	})
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "&lt;Tokyo&gt;")
	assert.Contains(t, body, "register")
}

func TestEventMessageKeysByActor(t *testing.T) {
	msg := EventMessage(MakeKeyFromID(42), "follow", []byte(`{"actor":42}`))
	assert.Equal(t, "42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, EventTypeHeader, msg.Headers[0].Key)
	assert.Equal(t, "follow", string(msg.Headers[0].Value))

	var nilProducer *KafkaProducer
	assert.NoError(t, nilProducer.Close())
}
