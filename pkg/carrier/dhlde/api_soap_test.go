package dhlde

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const versionResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <bcs:getVersionResponse xmlns:bcs="http://de.ws.intraship">
      <Version>
        <majorRelease>1</majorRelease>
        <minorRelease>0</minorRelease>
        <build>14</build>
      </Version>
    </bcs:getVersionResponse>
  </soap:Body>
</soap:Envelope>`

const shipmentResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <bcs:CreateShipmentResponse xmlns:bcs="http://de.ws.intraship">
      <Status>
        <StatusCode>0</StatusCode>
        <StatusMessage>ok</StatusMessage>
      </Status>
      <CreationState>
        <SequenceNumber>SHP-1</SequenceNumber>
        <StatusCode>0</StatusCode>
        <StatusMessage>ok</StatusMessage>
        <ShipmentNumber>
          <shipmentNumber>00340434161094042557</shipmentNumber>
        </ShipmentNumber>
        <PieceInformation>
          <PieceNumber>
            <licensePlate>JJD000390004337966006</licensePlate>
          </PieceNumber>
        </PieceInformation>
        <PieceInformation>
          <PieceNumber>
            <licensePlate>JJD000390004337966005</licensePlate>
          </PieceNumber>
        </PieceInformation>
        <Labelurl>https://cig.dhl.de/labels/test.pdf</Labelurl>
      </CreationState>
    </bcs:CreateShipmentResponse>
  </soap:Body>
</soap:Envelope>`

const faultResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Internal service error</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

func newSOAPTestClient(serverURL string) *SOAPAPIClient {
	return NewSOAPAPIClient(SOAPAPIClientConfig{
		Username:     "dev-user",
		Password:     "dev-token",
		APIUser:      "geschaeftskunden_api",
		APISignature: "signature",
		Endpoint:     serverURL,
	})
}

func TestSOAPAPIClient_GetVersion(t *testing.T) {
	var gotAuth, gotAction, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAction = r.Header.Get("SOAPAction")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(versionResponseXML))
	}))
	defer server.Close()

	client := newSOAPTestClient(server.URL)

	version, err := client.GetVersion(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1", version.MajorRelease)
	assert.Equal(t, "0", version.MinorRelease)
	assert.Equal(t, "14", version.Build)

	assert.Equal(t, "Basic ZGV2LXVzZXI6ZGV2LXRva2Vu", gotAuth)
	assert.Equal(t, "urn:getVersion", gotAction)
	assert.Equal(t, "text/xml; charset=utf-8", gotContentType)

	body := string(gotBody)
	assert.Contains(t, body, "<cis:user>geschaeftskunden_api</cis:user>")
	assert.Contains(t, body, "<cis:signature>signature</cis:signature>")
	assert.Contains(t, body, "<bcs:getVersion/>")
}

func TestSOAPAPIClient_GetVersion_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newSOAPTestClient(server.URL)

	_, err := client.GetVersion(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus)
}

func TestSOAPAPIClient_CreateShipmentDD(t *testing.T) {
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "urn:createShipmentDD", r.Header.Get("SOAPAction"))
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(shipmentResponseXML))
	}))
	defer server.Close()

	client := newSOAPTestClient(server.URL)

	order, err := buildShipmentOrder(domesticRequest(), testAccount, buildAt())
	require.NoError(t, err)

	resp, err := client.CreateShipmentDD(context.Background(), &Version{MajorRelease: "1", MinorRelease: "0"}, []ShipmentOrder{*order})
	require.NoError(t, err)

	assert.Equal(t, "0", resp.StatusCode)
	require.Len(t, resp.CreationStates, 1)

	state := resp.CreationStates[0]
	assert.Equal(t, "SHP-1", state.SequenceNumber)
	assert.Equal(t, "00340434161094042557", state.ShipmentNumber)
	assert.Equal(t, []string{"JJD000390004337966006", "JJD000390004337966005"}, state.PieceNumbers)
	assert.Equal(t, "https://cig.dhl.de/labels/test.pdf", state.LabelURL)

	body := string(gotBody)
	assert.Contains(t, body, "<majorRelease>1</majorRelease>")
	assert.Contains(t, body, "<cis:EKP>5000000008</cis:EKP>")
	assert.Contains(t, body, "<cis:partnerID>01</cis:partnerID>")
	assert.Contains(t, body, "<cis:germany>10115</cis:germany>")
	assert.Contains(t, body, "<cis:firstname>Max</cis:firstname>")
	assert.Contains(t, body, "<cis:lastname>Mustermann</cis:lastname>")
	assert.NotContains(t, body, "<ExportDocument>")
}

func TestSOAPAPIClient_CreateShipmentDD_ExportDocument(t *testing.T) {
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(shipmentResponseXML))
	}))
	defer server.Close()

	client := newSOAPTestClient(server.URL)

	order, err := buildShipmentOrder(internationalRequest(), testAccount, buildAt())
	require.NoError(t, err)

	_, err = client.CreateShipmentDD(context.Background(), &Version{MajorRelease: "1", MinorRelease: "0"}, []ShipmentOrder{*order})
	require.NoError(t, err)

	body := string(gotBody)
	assert.Contains(t, body, "<InvoiceType>commercial</InvoiceType>")
	assert.Contains(t, body, "<TermsOfTrade>DDP</TermsOfTrade>")
	assert.Contains(t, body, "<Description>KindleX,Cover</Description>")
	assert.Contains(t, body, "<CustomsValue>320</CustomsValue>")
	assert.Contains(t, body, "<cis:other>95014</cis:other>")
	assert.Contains(t, body, "<cis:state>Californi</cis:state>")
}

func TestSOAPAPIClient_Fault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(faultResponseXML))
	}))
	defer server.Close()

	client := newSOAPTestClient(server.URL)

	_, err := client.GetVersion(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "soap:Server", apiErr.Code)
	assert.Equal(t, "Internal service error", apiErr.Description)
	assert.Equal(t, http.StatusInternalServerError, apiErr.HTTPStatus)
}

func TestSOAPAPIClient_Endpoints(t *testing.T) {
	sandbox := NewSOAPAPIClient(SOAPAPIClientConfig{})
	assert.Equal(t, "https://cig.dhl.de/services/sandbox/soap", sandbox.endpoint)

	production := NewSOAPAPIClient(SOAPAPIClientConfig{Production: true})
	assert.Equal(t, "https://cig.dhl.de/services/production/soap", production.endpoint)
}
