package dhlde

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"text/template"
	"time"
)

// Fixed endpoints of the DHL business customer shipping web service.
const (
	sandboxEndpoint    = "https://cig.dhl.de/services/sandbox/soap"
	productionEndpoint = "https://cig.dhl.de/services/production/soap"
)

// SOAPAPIClient is the production implementation of APIClient using SOAP/WSDL.
type SOAPAPIClient struct {
	endpoint     string
	username     string
	password     string
	apiUser      string
	apiSignature string
	httpClient   *http.Client
}

// SOAPAPIClientConfig holds configuration for the SOAP client.
type SOAPAPIClientConfig struct {
	Username     string
	Password     string
	APIUser      string
	APISignature string
	Production   bool
	Timeout      time.Duration

	// Endpoint overrides the fixed environment endpoint, for tests.
	Endpoint string
}

// NewSOAPAPIClient creates a new SOAP-based API client for production use.
func NewSOAPAPIClient(cfg SOAPAPIClientConfig) *SOAPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	endpoint := sandboxEndpoint
	if cfg.Production {
		endpoint = productionEndpoint
	}
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
	}

	return &SOAPAPIClient{
		endpoint:     endpoint,
		username:     cfg.Username,
		password:     cfg.Password,
		apiUser:      cfg.APIUser,
		apiSignature: cfg.APISignature,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetVersion negotiates the API version with the web service.
func (c *SOAPAPIClient) GetVersion(ctx context.Context) (*Version, error) {
	soapBody, err := c.buildVersionRequest()
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, "getVersion", soapBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError(resp)
	}

	return c.parseVersionResponse(resp.Body)
}

// CreateShipmentDD books shipments and returns per-order creation states.
func (c *SOAPAPIClient) CreateShipmentDD(ctx context.Context, version *Version, orders []ShipmentOrder) (*CreateShipmentResponse, error) {
	soapBody, err := c.buildShipmentRequest(version, orders)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.doSOAPRequest(ctx, "createShipmentDD", soapBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError(resp)
	}

	return c.parseShipmentResponse(resp.Body)
}

// ============================================================================
// SOAP Request Helpers
// ============================================================================

func (c *SOAPAPIClient) doSOAPRequest(ctx context.Context, action string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// The CIG gateway uses Basic Auth on top of the SOAP header credentials.
	auth := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "urn:"+action)

	return c.httpClient.Do(req)
}

// ============================================================================
// SOAP Request Builders
// ============================================================================

const soapEnvelopeTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:bcs="http://de.ws.intraship" xmlns:cis="http://dhl.de/webservice/cisbase">
  <soap:Header>
    <cis:Authentification>
      <cis:user>{{.APIUser}}</cis:user>
      <cis:signature>{{.APISignature}}</cis:signature>
      <cis:type>0</cis:type>
    </cis:Authentification>
  </soap:Header>
  <soap:Body>
    {{.Body}}
  </soap:Body>
</soap:Envelope>`

func (c *SOAPAPIClient) buildVersionRequest() ([]byte, error) {
	return c.buildEnvelope(`<bcs:getVersion/>`, nil)
}

const shipmentRequestTemplate = `<bcs:CreateShipmentDDRequest>
      <bcs:Version>
        <majorRelease>{{.Version.MajorRelease}}</majorRelease>
        <minorRelease>{{.Version.MinorRelease}}</minorRelease>{{if .Version.Build}}
        <build>{{.Version.Build}}</build>{{end}}
      </bcs:Version>
{{- range .Orders}}
      <ShipmentOrder>
        <SequenceNumber>{{.SequenceNumber}}</SequenceNumber>
        <Shipment>
          <ShipmentDetails>
            <ProductCode>{{.Shipment.ShipmentDetails.ProductCode}}</ProductCode>
            <ShipmentDate>{{.Shipment.ShipmentDetails.ShipmentDate}}</ShipmentDate>
            <cis:EKP>{{.Shipment.ShipmentDetails.EKP}}</cis:EKP>
            <Attendance>
              <cis:partnerID>{{.Shipment.ShipmentDetails.Attendance.PartnerID}}</cis:partnerID>
            </Attendance>
            <CustomerReference>{{.Shipment.ShipmentDetails.CustomerReference}}</CustomerReference>
{{- range .Shipment.ShipmentDetails.Items}}
            <ShipmentItem>
              <WeightInKG>{{.WeightInKG}}</WeightInKG>
              <PackageType>{{.PackageType}}</PackageType>
            </ShipmentItem>
{{- end}}
{{- with .Shipment.ShipmentDetails.Service}}
            <Service>
              <ServiceGroupDHLPaket>
                <Multipack>{{.Multipack}}</Multipack>
              </ServiceGroupDHLPaket>
            </Service>
{{- end}}
          </ShipmentDetails>
          <Shipper>
            <Company>
              <cis:Company>
                <cis:name1>{{.Shipment.Shipper.CompanyName}}</cis:name1>
              </cis:Company>
            </Company>
            {{template "address" .Shipment.Shipper.Address}}
            {{template "communication" .Shipment.Shipper.Communication}}
          </Shipper>
          <Receiver>
            <Company>
              <cis:Person>
                <cis:firstname>{{.Shipment.Receiver.FirstName}}</cis:firstname>
                <cis:lastname>{{.Shipment.Receiver.LastName}}</cis:lastname>
              </cis:Person>
            </Company>
            {{template "address" .Shipment.Receiver.Address}}
            {{template "communication" .Shipment.Receiver.Communication}}
          </Receiver>
{{- with .Shipment.ExportDocument}}
          <ExportDocument>
            <InvoiceType>{{.InvoiceType}}</InvoiceType>
            <InvoiceDate>{{.InvoiceDate}}</InvoiceDate>
            <ExportType>{{.ExportType}}</ExportType>
            <ExportTypeDescription>{{.ExportTypeDescription}}</ExportTypeDescription>
            <TermsOfTrade>{{.TermsOfTrade}}</TermsOfTrade>
            <Amount>{{.Amount}}</Amount>
            <Description>{{.Description}}</Description>
            <CountryCodeOrigin>{{.CountryCodeOrigin}}</CountryCodeOrigin>
            <CustomsValue>{{.CustomsValue}}</CustomsValue>
            <CustomsCurrency>{{.CustomsCurrency}}</CustomsCurrency>
            <ExportDocPosition>
              <Description>{{.Position.Description}}</Description>
              <CountryCodeOrigin>{{.Position.CountryCodeOrigin}}</CountryCodeOrigin>
              <Amount>{{.Position.Amount}}</Amount>
              <NetWeightInKG>{{.Position.NetWeightInKG}}</NetWeightInKG>
              <GrossWeightInKG>{{.Position.GrossWeightInKG}}</GrossWeightInKG>
              <CustomsValue>{{.Position.CustomsValue}}</CustomsValue>
              <CustomsCurrency>{{.Position.CustomsCurrency}}</CustomsCurrency>
            </ExportDocPosition>
          </ExportDocument>
{{- end}}
        </Shipment>
      </ShipmentOrder>
{{- end}}
    </bcs:CreateShipmentDDRequest>

{{- define "address"}}<Address>
              <cis:careOfName>{{.CareOfName}}</cis:careOfName>
              <cis:streetName>{{.StreetName}}</cis:streetName>
              <cis:Zip>
{{- if .Zip.Germany}}
                <cis:germany>{{.Zip.Germany}}</cis:germany>
{{- else if .Zip.England}}
                <cis:england>{{.Zip.England}}</cis:england>
{{- else}}
                <cis:other>{{.Zip.Other}}</cis:other>
{{- end}}
              </cis:Zip>
              <cis:city>{{.City}}</cis:city>
{{- with .Origin}}
              <cis:Origin>
                <cis:country>{{.Country}}</cis:country>
                <cis:countryISOCode>{{.CountryISOCode}}</cis:countryISOCode>
                <cis:state>{{.State}}</cis:state>
              </cis:Origin>
{{- end}}
            </Address>{{end}}

{{- define "communication"}}{{if .}}<Communication>
{{- if .Phone}}
              <cis:phone>{{.Phone}}</cis:phone>
{{- end}}
{{- if .Email}}
              <cis:email>{{.Email}}</cis:email>
{{- end}}
{{- if .Fax}}
              <cis:fax>{{.Fax}}</cis:fax>
{{- end}}
{{- if .Mobile}}
              <cis:mobile>{{.Mobile}}</cis:mobile>
{{- end}}
{{- if .Website}}
              <cis:website>{{.Website}}</cis:website>
{{- end}}
            </Communication>{{end}}{{end}}`

func (c *SOAPAPIClient) buildShipmentRequest(version *Version, orders []ShipmentOrder) ([]byte, error) {
	data := struct {
		Version *Version
		Orders  []ShipmentOrder
	}{Version: version, Orders: orders}

	return c.buildEnvelope(shipmentRequestTemplate, data)
}

func (c *SOAPAPIClient) buildEnvelope(bodyTemplate string, data interface{}) ([]byte, error) {
	// Parse and execute body template
	bodyTmpl, err := template.New("body").Parse(bodyTemplate)
	if err != nil {
		return nil, err
	}

	var bodyBuf bytes.Buffer
	if err := bodyTmpl.Execute(&bodyBuf, data); err != nil {
		return nil, err
	}

	// Build envelope
	envTmpl, err := template.New("envelope").Parse(soapEnvelopeTemplate)
	if err != nil {
		return nil, err
	}

	envData := struct {
		APIUser      string
		APISignature string
		Body         string
	}{
		APIUser:      c.apiUser,
		APISignature: c.apiSignature,
		Body:         bodyBuf.String(),
	}

	var envBuf bytes.Buffer
	if err := envTmpl.Execute(&envBuf, envData); err != nil {
		return nil, err
	}

	return envBuf.Bytes(), nil
}

// ============================================================================
// SOAP Response Parsers - XML Types
// ============================================================================

// soapEnvelope represents a SOAP envelope response
type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Fault              *soapFault              `xml:"Fault,omitempty"`
	GetVersionResponse *getVersionResponse     `xml:"getVersionResponse,omitempty"`
	CreateShipmentResp *createShipmentResponse `xml:"CreateShipmentResponse,omitempty"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type getVersionResponse struct {
	Version soapVersion `xml:"Version"`
}

type soapVersion struct {
	MajorRelease string `xml:"majorRelease"`
	MinorRelease string `xml:"minorRelease"`
	Build        string `xml:"build"`
}

type createShipmentResponse struct {
	Status        soapStatus          `xml:"Status"`
	CreationState []soapCreationState `xml:"CreationState"`
}

type soapStatus struct {
	StatusCode    string   `xml:"StatusCode"`
	StatusMessage []string `xml:"StatusMessage"`
}

type soapCreationState struct {
	SequenceNumber   string             `xml:"SequenceNumber"`
	StatusCode       string             `xml:"StatusCode"`
	StatusMessage    []string           `xml:"StatusMessage"`
	ShipmentNumber   soapShipmentNumber `xml:"ShipmentNumber"`
	PieceInformation []soapPieceInfo    `xml:"PieceInformation"`
	LabelURL         string             `xml:"Labelurl"`
}

type soapShipmentNumber struct {
	ShipmentNumber string `xml:"shipmentNumber"`
}

type soapPieceInfo struct {
	PieceNumber soapPieceNumber `xml:"PieceNumber"`
}

type soapPieceNumber struct {
	LicensePlate string `xml:"licensePlate"`
}

// ============================================================================
// SOAP Response Parsing Functions
// ============================================================================

func (c *SOAPAPIClient) parseSOAPError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return &APIError{
			Code:        "UNAUTHORIZED",
			Description: "invalid credentials",
			HTTPStatus:  http.StatusUnauthorized,
		}
	}

	var env soapEnvelope
	if err := xml.Unmarshal(body, &env); err == nil && env.Body.Fault != nil {
		return &APIError{
			Code:        env.Body.Fault.Code,
			Description: env.Body.Fault.String,
			HTTPStatus:  resp.StatusCode,
		}
	}

	return &APIError{
		Code:        fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Description: string(body),
		HTTPStatus:  resp.StatusCode,
	}
}

func (c *SOAPAPIClient) parseVersionResponse(body io.Reader) (*Version, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var env soapEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if env.Body.Fault != nil {
		return nil, &APIError{
			Code:        env.Body.Fault.Code,
			Description: env.Body.Fault.String,
		}
	}

	if env.Body.GetVersionResponse == nil {
		return nil, &APIError{
			Code:        "PARSE_ERROR",
			Description: "No version data in response",
		}
	}

	v := env.Body.GetVersionResponse.Version
	return &Version{
		MajorRelease: v.MajorRelease,
		MinorRelease: v.MinorRelease,
		Build:        v.Build,
	}, nil
}

func (c *SOAPAPIClient) parseShipmentResponse(body io.Reader) (*CreateShipmentResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var env soapEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if env.Body.Fault != nil {
		return nil, &APIError{
			Code:        env.Body.Fault.Code,
			Description: env.Body.Fault.String,
		}
	}

	if env.Body.CreateShipmentResp == nil {
		return nil, &APIError{
			Code:        "PARSE_ERROR",
			Description: "No shipment data in response",
		}
	}

	resp := env.Body.CreateShipmentResp

	states := make([]CreationState, len(resp.CreationState))
	for i, cs := range resp.CreationState {
		pieces := make([]string, len(cs.PieceInformation))
		for j, pi := range cs.PieceInformation {
			pieces[j] = pi.PieceNumber.LicensePlate
		}
		states[i] = CreationState{
			SequenceNumber: cs.SequenceNumber,
			StatusCode:     cs.StatusCode,
			StatusMessages: cs.StatusMessage,
			ShipmentNumber: cs.ShipmentNumber.ShipmentNumber,
			PieceNumbers:   pieces,
			LabelURL:       cs.LabelURL,
		}
	}

	return &CreateShipmentResponse{
		StatusCode:     resp.Status.StatusCode,
		StatusMessages: resp.Status.StatusMessage,
		CreationStates: states,
	}, nil
}

var _ APIClient = (*SOAPAPIClient)(nil)
