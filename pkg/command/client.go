/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-usbhla/pkg/analyzer"
	"jinr.ru/greenlab/go-usbhla/pkg/config"
	"jinr.ru/greenlab/go-usbhla/pkg/l2cap"
	"jinr.ru/greenlab/go-usbhla/pkg/srv"
	"jinr.ru/greenlab/go-usbhla/pkg/store"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s:%d/api", cfg.Api.Address, cfg.Api.Port),
	}
}

func (c *ApiClient) captureUrl(name string) string {
	return fmt.Sprintf("%s/captures/%s", c.ApiPrefix, url.PathEscape(name))
}

// check converts an error response to ErrApi and decodes a successful one into v
func check(r *req.Resp, v interface{}) error {
	if r.Response().StatusCode != http.StatusOK {
		e := &srv.RespError{}
		if err := r.ToJSON(e); err != nil || e.Message == "" {
			return ErrApi{Code: r.Response().StatusCode, Message: r.Response().Status}
		}
		return ErrApi{Code: e.Code, Message: e.Message}
	}
	if v == nil {
		return nil
	}
	return r.ToJSON(v)
}

// Captures returns the list of stored captures
func (c *ApiClient) Captures() ([]*store.Capture, error) {
	r, err := req.Get(fmt.Sprintf("%s/captures", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	var captures []*store.Capture
	if err := check(r, &captures); err != nil {
		return nil, err
	}
	return captures, nil
}

func (c *ApiClient) Capture(name string) (*store.Capture, error) {
	r, err := req.Get(c.captureUrl(name))
	if err != nil {
		return nil, err
	}
	capture := &store.Capture{}
	if err := check(r, capture); err != nil {
		return nil, err
	}
	return capture, nil
}

// Upload sends a token file to be decoded and stored by the server.
// Negative base or endpoint leave the server defaults.
func (c *ApiClient) Upload(name string, tokens []byte, base, endpoint int) (*store.Capture, error) {
	params := req.QueryParam{}
	if base > 0 {
		params["base"] = strconv.Itoa(base)
	}
	if endpoint >= 0 {
		params["endpoint"] = strconv.Itoa(endpoint)
	}
	r, err := req.Post(c.captureUrl(name), params, req.Header{"Content-Type": "application/x-yaml"}, tokens)
	if err != nil {
		return nil, err
	}
	capture := &store.Capture{}
	if err := check(r, capture); err != nil {
		return nil, err
	}
	return capture, nil
}

func (c *ApiClient) Delete(name string) error {
	r, err := req.Delete(c.captureUrl(name))
	if err != nil {
		return err
	}
	return check(r, nil)
}

// Records returns records of a capture matching filter, after and limit of 0 are ignored
func (c *ApiClient) Records(name, filter string, after uint64, limit int) ([]*analyzer.Record, error) {
	params := req.QueryParam{}
	if filter != "" {
		params["filter"] = filter
	}
	if after > 0 {
		params["after"] = strconv.FormatUint(after, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	r, err := req.Get(fmt.Sprintf("%s/records", c.captureUrl(name)), params)
	if err != nil {
		return nil, err
	}
	var records []*analyzer.Record
	if err := check(r, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *ApiClient) Record(name string, seq uint64) (*analyzer.Record, error) {
	r, err := req.Get(fmt.Sprintf("%s/records/%d", c.captureUrl(name), seq))
	if err != nil {
		return nil, err
	}
	rec := &analyzer.Record{}
	if err := check(r, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Channels returns the channel table snapshot of a capture
func (c *ApiClient) Channels(name string) ([]l2cap.Entry, error) {
	r, err := req.Get(fmt.Sprintf("%s/channels", c.captureUrl(name)))
	if err != nil {
		return nil, err
	}
	var entries []l2cap.Entry
	if err := check(r, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
