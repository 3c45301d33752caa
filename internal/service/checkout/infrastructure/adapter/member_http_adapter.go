// internal/service/checkout/infrastructure/adapter/member_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"kasir/internal/pkg/constants"
	"kasir/internal/pkg/httpclient"
	"kasir/internal/service/checkout/domain"
)

// MemberHTTPAdapter 会员服务的 HTTP 适配器，提供收货地址快照。
type MemberHTTPAdapter struct {
	client  *httpclient.Client
	timeout time.Duration
}

func NewMemberHTTPAdapter(client *httpclient.Client, timeout time.Duration) *MemberHTTPAdapter {
	return &MemberHTTPAdapter{client: client, timeout: timeout}
}

func (a *MemberHTTPAdapter) ResolveAddress(ctx context.Context, userID, addressID string) (*domain.AddressSnapshot, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var snapshot domain.AddressSnapshot
	path := fmt.Sprintf("%s?userId=%s&addressId=%s", constants.MemberAddressPath, userID, addressID)
	if err := a.client.GetJSON(callCtx, constants.MemberService, path, &snapshot); err != nil {
		var statusErr *httpclient.ErrStatus
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, domain.ErrAddressNotFound
		}
		return nil, errors.Wrap(err, "resolve shipping address")
	}
	return &snapshot, nil
}
