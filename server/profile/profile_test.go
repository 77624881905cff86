package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validProfile() *Profile {
	return &Profile{
		Port:         8230,
		Driver:       "sqlite",
		Model:        "gpt-4o-mini",
		ModelBaseURL: "https://api.openai.com/v1",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validProfile().Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	p := validProfile()
	p.Driver = "oracle"
	require.Error(t, p.Validate())
}

func TestValidateRequiresDSNForServerDatabases(t *testing.T) {
	p := validProfile()
	p.Driver = "postgres"
	require.Error(t, p.Validate())

	p.DSN = "postgres://localhost/strand"
	require.NoError(t, p.Validate())
}

func TestValidateRequiresModel(t *testing.T) {
	p := validProfile()
	p.Model = ""
	require.Error(t, p.Validate())

	p = validProfile()
	p.ModelBaseURL = ""
	require.Error(t, p.Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	p := validProfile()
	p.Port = 0
	require.Error(t, p.Validate())

	p.Port = 70000
	require.Error(t, p.Validate())
}
