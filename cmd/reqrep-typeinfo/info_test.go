package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnakeCase(t *testing.T) {
	require.Equal(t, "add_two_ints", snakeCase("AddTwoInts"))
	require.Equal(t, "trigger", snakeCase("Trigger"))
}

func TestDescribe(t *testing.T) {
	f, err := os.Open("../../pkg/typesupport/protots/testdata/add_two_ints.proto")
	require.NoError(t, err)
	defer f.Close()

	out := bytes.Buffer{}
	require.NoError(t, Describe(f, "add_two_ints.proto", &out, Options{Meta: true}))
	s := out.String()
	require.Contains(t, s, "/add_two_ints (example_interfaces.srv.AddTwoInts.Call)")
	require.Contains(t, s, "request topic:  rq/add_two_intsRequest")
	require.Contains(t, s, "response topic: rr/add_two_intsReply")
	require.Contains(t, s, "request type: example_interfaces::srv::dds_::AddTwoInts_Request_ RIHS01_")
	require.Contains(t, s, "response type: example_interfaces::srv::dds_::AddTwoInts_Response_ RIHS01_")
}

func TestDescribeAvoidConventions(t *testing.T) {
	src := `syntax = "proto3";
package std_srvs.srv;
message Trigger_Request {}
message Trigger_Response { bool success = 1; string message = 2; }
service Trigger { rpc Call (Trigger_Request) returns (Trigger_Response); }
`
	out := bytes.Buffer{}
	require.NoError(t, Describe(strings.NewReader(src), "trigger.proto", &out, Options{ServiceName: "/robot/reset", AvoidConventions: true}))
	require.Contains(t, out.String(), "request topic:  /robot/resetRequest")
	require.Contains(t, out.String(), "response topic: /robot/resetReply")
}

func TestDescribeWithoutService(t *testing.T) {
	src := "syntax = \"proto3\";\npackage x;\nmessage A { int32 a = 1; }\n"
	require.Error(t, Describe(strings.NewReader(src), "x.proto", &bytes.Buffer{}, Options{}))
}
