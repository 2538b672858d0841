package pei

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikosgc/svxlink/inject"
	"github.com/kikosgc/svxlink/sds"
	"github.com/kikosgc/svxlink/tetra"
)

func sdsHeader(source string) string {
	return "+CTSDSR: 12," + source + ",0,09011638300023401,0,88"
}

func locationReport(reason sds.ReasonForSending) string {
	report := sds.LocationReport{
		Latitude:           51.5,
		Longitude:          12.25,
		HorizontalVelocity: sds.VelocityUnknown,
		ReasonForSending:   reason,
	}
	bytes, _ := report.Encode(nil, 0)
	return tetra.BinaryToHex(bytes)
}

func TestSession_TextSDS(t *testing.T) {
	session, link, rec := newReadySession(t)
	session.now = func() time.Time { return time.Unix(1700000000, 0) }

	session.handleLine(sdsHeader(annaTSI))
	session.handleLine("82040A0148616C6C6F")

	require.Len(t, link.sdsCommands(), 1)
	assert.True(t, strings.HasSuffix(link.sdsCommands()[0], "AT+CMGS=23404,32\r\n8210000A\x1a"), link.sdsCommands()[0])
	assert.Equal(t, []string{`text_sds_received 09011638300023404 "Hallo"`}, rec.Events())
	assert.Equal(t, []string{"DL1ABC: " + aprsPrefix + ">Hallo"}, rec.relayed)
	require.Len(t, rec.Published(SDSTopic), 1)
	assert.Equal(t,
		`[{"last_activity":"1700000000","tsi":"09011638300023404","type":"text","source":"DB0TET","text":"Hallo"}]`,
		rec.Published(SDSTopic)[0])

	anna, _ := session.users.Lookup(annaTSI)
	assert.Equal(t, time.Unix(1700000000, 0), anna.LastActivity)
}

func TestSession_LocationSDS(t *testing.T) {
	session, link, rec := newReadySession(t)

	session.handleLine(sdsHeader(annaTSI))
	session.handleLine(locationReport(sds.DMOOn))
	session.handleLine(sdsHeader(annaTSI))
	session.handleLine(locationReport(sds.DMOOn))

	events := rec.Events()
	require.Len(t, events, 5)
	assert.Equal(t, "dmo_on "+bertTSI, events[0])
	assert.True(t, strings.HasPrefix(events[1], "distance_rpt_ms "+annaTSI+" "), events[1])
	assert.Equal(t, "lip_sds_received "+annaTSI+" 51.50000 12.25000", events[2])
	assert.True(t, strings.HasPrefix(events[3], "distance_rpt_ms "), events[3])
	assert.Equal(t, events[2], events[4])

	entries := session.queue.Entries()
	require.Len(t, entries, 1, "other users are informed only once in a while")
	assert.Equal(t, bertTSI, entries[0].TSI)
	assert.Equal(t, "DL1ABC state change, DMO=on", entries[0].Payload)
	require.Len(t, link.sdsCommands(), 1)
	assert.Contains(t, link.sdsCommands()[0], "AT+CMGS=23405,")

	require.Len(t, rec.relayed, 2)
	assert.True(t, strings.HasPrefix(rec.relayed[0], "DL1ABC: "+aprsPrefix+"!5130.00N/01215.00Ee"), rec.relayed[0])

	anna, _ := session.users.Lookup(annaTSI)
	assert.Equal(t, sds.DMOOn, anna.ReasonForSending)
	assert.InDelta(t, 51.5, anna.Latitude, 0.0001)

	published := rec.Published(SDSTopic)
	require.Len(t, published, 2)
	assert.Contains(t, published[0], `"reasonforsending":8`)
	assert.Contains(t, published[0], `"mgrs":"`)
}

func TestSession_LocationSDS_Welcome(t *testing.T) {
	session, _, rec := newReadySession(t)

	session.handleLine(sdsHeader(annaTSI))
	session.handleLine(locationReport(sds.PowerOn))

	entries := session.queue.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, annaTSI, entries[0].TSI)
	assert.Equal(t, "Hello again", entries[0].Payload)
	assert.NotContains(t, strings.Join(rec.Events(), "\n"), "dmo_on")
}

func TestSession_LocationSDS_UserDefinedData(t *testing.T) {
	session, _, rec := newReadySession(t)
	report := sds.LocationReport{Latitude: 51.5, Longitude: 12.25, UserDefinedData: true, UserData: 0}
	bytes, _ := report.Encode(nil, 0)

	session.handleLine(sdsHeader(annaTSI))
	session.handleLine(tetra.BinaryToHex(bytes))

	assert.Zero(t, session.queue.Len(), "no welcome and no info for user defined data")
	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "lip_sds_received "+annaTSI+" 51.50000 12.25000", events[1])
	assert.NotContains(t, rec.Published(SDSTopic)[0], "reasonforsending")
}

func TestSession_StateSDS(t *testing.T) {
	tt := []struct {
		desc          string
		line          string
		expectedDTMF  []string
		expectedRelay string
	}{
		{
			desc:          "command and macro",
			line:          "8001",
			expectedDTMF:  []string{"91#", "D32769#"},
			expectedRelay: "DL1ABC: " + aprsPrefix + ">State:QRV (32769)",
		},
		{
			desc:          "not configured",
			line:          "8002",
			expectedRelay: "DL1ABC: " + aprsPrefix + ">State: (32770)",
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			session, _, rec := newReadySession(t)

			session.handleLine(sdsHeader(annaTSI))
			session.handleLine(tc.line)

			assert.Equal(t, tc.expectedDTMF, rec.dtmf)
			assert.Equal(t, []string{tc.expectedRelay}, rec.relayed)
			require.Len(t, rec.Events(), 1)
			assert.True(t, strings.HasPrefix(rec.Events()[0], "state_sds_received "+annaTSI+" "))
			anna, _ := session.users.Lookup(annaTSI)
			assert.NotZero(t, anna.State)
		})
	}
}

func TestSession_AckSDS(t *testing.T) {
	session, _, rec := newReadySession(t)
	session.reference = 9
	session.page(annaTSI, "Hello")
	entry := session.queue.Entries()[0]
	require.Equal(t, sds.MessageReference(0x0A), entry.Reference)

	session.handleLine(sdsHeader(annaTSI))
	session.handleLine("8210000A")

	assert.False(t, entry.ConfirmedAt.IsZero())
	assert.Equal(t, []string{"sds_received_ack " + annaTSI}, rec.Events())
	assert.Equal(t, []string{"DL1ABC: " + aprsPrefix + ">ACK"}, rec.relayed)
}

func TestSession_SimpleTextSDS(t *testing.T) {
	session, _, rec := newReadySession(t)
	message, _ := sds.NewSimpleTextMessage("Moin").Encode(nil, 0)

	session.handleLine(sdsHeader(annaTSI))
	session.handleLine(tetra.BinaryToHex(message))

	assert.Equal(t, []string{`text_sds_received ` + annaTSI + ` "Moin"`}, rec.Events())
	entries := session.queue.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, genericAck, entries[0].Payload)
}

func TestSession_UnknownSDS(t *testing.T) {
	tt := []struct {
		desc string
		line string
	}{
		{desc: "simple location", line: "03ABCD"},
		{desc: "WAP", line: "04ABCD"},
		{desc: "concatenated", line: "0C0102"},
		{desc: "unclassified", line: "XYZ"},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			session, _, rec := newReadySession(t)

			session.handleLine(sdsHeader(annaTSI))
			session.handleLine(tc.line)

			assert.Equal(t, []string{"unknown_sds_received"}, rec.Events())
			assert.Equal(t, 1, session.unknownSDS)
			assert.Empty(t, rec.relayed)
			require.Len(t, rec.Published(SDSTopic), 1)
			assert.Contains(t, rec.Published(SDSTopic)[0], `"type":"unknown"`)
		})
	}
}

func TestSession_SDSFromUnknownUser(t *testing.T) {
	session, link, rec := newReadySession(t)

	session.handleLine(sdsHeader("09011638300023409"))
	session.handleLine("8001")

	assert.Empty(t, rec.Events())
	assert.Empty(t, rec.dtmf)
	assert.Equal(t, 3, session.users.Len())
	require.Len(t, link.sdsCommands(), 1)
	assert.Contains(t, link.sdsCommands()[0], "AT+CMGS=23409,")
}

func TestSession_SDSWithoutCallingParty(t *testing.T) {
	session, link, rec := newReadySession(t)

	session.handleLine("+CTSDSR: 12,09011638300023401,0,32")
	session.handleLine("8210000A")

	assert.Equal(t, 2, session.users.Len())
	_, ok := session.users.Lookup("09011638300000000")
	assert.False(t, ok)
	assert.Empty(t, link.sdsCommands())
	assert.Empty(t, rec.Events())
	assert.Empty(t, rec.relayed)
	assert.Nil(t, session.header)
}

func TestSession_RegistrationSDS(t *testing.T) {
	cfg := testConfig()
	cfg.RegistrationPattern = "^0D"
	session, _, rec := newTestSession(t, cfg)
	session.health = OK

	session.handleLine(sdsHeader(annaTSI))
	session.handleLine("0D01")

	assert.Equal(t, []string{"register_tsi " + annaTSI}, rec.Events())
	entries := session.queue.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, genericAck, entries[0].Payload)
	assert.Contains(t, rec.Published(SDSTopic)[0], `"type":"registration"`)
}

func TestSession_Inject(t *testing.T) {
	tt := []struct {
		desc     string
		line     string
		expected []string
	}{
		{
			desc:     "text",
			line:     "0901163830023401,T,Hello",
			expected: []string{"Hello"},
		},
		{
			desc:     "long text",
			line:     "23404,T,abcdefghijklmnopqrstuvwxy",
			expected: []string{"abcdefghij", "klmnopqrst", "uvwxy"},
		},
		{
			desc:     "raw",
			line:     "23404,R,8210000A",
			expected: []string{"8210000A"},
		},
		{
			desc: "invalid raw",
			line: "23404,R,XYZ",
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := testConfig()
			cfg.MaxTextLength = 10
			session, _, _ := newTestSession(t, cfg)
			record, err := inject.ParseRecord(tc.line)
			require.NoError(t, err)

			session.inject(record)

			var actual []string
			for _, entry := range session.queue.Entries() {
				assert.Equal(t, remarkInjected, entry.Remark)
				actual = append(actual, entry.Payload)
			}
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestSession_InjectNormalizesTSI(t *testing.T) {
	session, _, _ := newReadySession(t)
	record, err := inject.ParseRecord("0901163830023401,T,Hello")
	require.NoError(t, err)

	session.inject(record)

	entries := session.queue.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "09011638300023401", entries[0].TSI)
	assert.Equal(t, sds.TextType, entries[0].Type)
	assert.Equal(t, sds.MessageReference(1), entries[0].Reference)
}

func TestSession_Page(t *testing.T) {
	session, link, _ := newReadySession(t)

	session.page("23404", "Hi")

	entries := session.queue.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, annaTSI, entries[0].TSI)
	assert.Equal(t, remarkPager, entries[0].Remark)
	require.Len(t, link.sdsCommands(), 1)
	assert.True(t, strings.HasPrefix(link.sdsCommands()[0], sds.SwitchToSDSTL+"\r\nAT+CMGS=23404,"))
}
