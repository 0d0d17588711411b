package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopology(t *testing.T) {
	topo, err := parseTopology("accounts, cdc.accounts.users:worker.cdc.accounts.users.sub ,shared.accounts.UserEvents:component.sub:audit.sub,lonely")
	require.NoError(t, err)
	assert.Equal(t, "accounts", topo.projectID)
	assert.Equal(t, []string{"cdc.accounts.users", "shared.accounts.UserEvents", "lonely"}, topo.order)
	assert.Equal(t, []string{"worker.cdc.accounts.users.sub"}, topo.topics["cdc.accounts.users"])
	assert.Equal(t, []string{"component.sub", "audit.sub"}, topo.topics["shared.accounts.UserEvents"])
	assert.Empty(t, topo.topics["lonely"])

	_, err = parseTopology("")
	assert.Error(t, err)
	_, err = parseTopology("accounts,:sub")
	assert.Error(t, err)
}
