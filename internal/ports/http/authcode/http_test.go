package authcodehttp

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestCodeRequest_FromValues(t *testing.T) {
	var req RequestCodeRequest
	req.FromValues(url.Values{
		"siteId":       {" site-1"},
		"userId":       {"bob  x"},
		"companyEmail": {"noreply@acme.test "},
		"companyName":  {"  Acme\tCorp  "},
		"userEmail":    {"Bob@Example.com"},
	})

	assert.Equal(t, RequestCodeRequest{
		SiteID:       " site-1",
		UserID:       "bob  x",
		CompanyEmail: "noreply@acme.test ",
		CompanyName:  "Acme Corp",
		UserEmail:    "Bob@Example.com",
	}, req)
}

func TestVerifyCodeRequest_FromValues(t *testing.T) {
	var req VerifyCodeRequest
	req.FromValues(url.Values{
		"siteId":   {"site-1"},
		"userId":   {"bob\tx"},
		"authCode": {" 123456 "},
	})

	assert.Equal(t, VerifyCodeRequest{SiteID: "site-1", UserID: "bob\tx", AuthCode: " 123456 "}, req)
}
