package subgraph

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/mooveapp/auctiond/internal/domain"
	"github.com/mooveapp/auctiond/pkg/ratelimit"
)

// Client 索引服务（subgraph）客户端
// 拍卖事件和NFT转移事件分别由两个独立的subgraph索引
type Client struct {
	http       *resty.Client
	auctionURL string
	nftURL     string
	limiters   *ratelimit.Manager
}

// NewClient 创建索引服务客户端
func NewClient(auctionURL, nftURL string) *Client {
	// 索引服务偶发 429/5xx，带重试
	http := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() == 429 || resp.StatusCode() >= 500
		})

	return &Client{
		http:       http,
		auctionURL: auctionURL,
		nftURL:     nftURL,
		limiters:   ratelimit.NewManager(),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// query 向指定端点发起GraphQL查询，out接收data字段
// 每个端点前置一个令牌桶，查询方阻塞等待而不是直接失败
func (c *Client) query(ctx context.Context, url, query string, variables map[string]any, out any) error {
	if err := c.limiters.Bucket(url, 10, 10).Wait(ctx); err != nil {
		return errors.Wrap(err, "等待索引服务限流配额失败")
	}

	envelope := struct {
		Data   any            `json:"data"`
		Errors []graphQLError `json:"errors"`
	}{Data: out}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(graphQLRequest{Query: query, Variables: variables}).
		SetResult(&envelope).
		Post(url)
	if err != nil {
		return errors.Wrap(err, "请求索引服务失败")
	}
	if resp.StatusCode() != 200 {
		return errors.Errorf("索引服务返回异常状态码: %d", resp.StatusCode())
	}
	if len(envelope.Errors) > 0 {
		return errors.Errorf("索引服务查询出错: %s", envelope.Errors[0].Message)
	}
	return nil
}

const bidsQuery = `
query BidsByAuction($auctionId: BigInt!) {
  bidPlaceds(
    where: { auctionId: $auctionId }
    orderBy: blockTimestamp
    orderDirection: desc
    first: 1000
  ) {
    bidder
    auctionId
    bidAmount
    blockTimestamp
    transactionHash
  }
}`

type rawBid struct {
	Bidder          string `json:"bidder"`
	AuctionID       string `json:"auctionId"`
	BidAmount       string `json:"bidAmount"`
	BlockTimestamp  string `json:"blockTimestamp"`
	TransactionHash string `json:"transactionHash"`
}

// Bids 某场拍卖的历史出价，按区块时间倒序
func (c *Client) Bids(ctx context.Context, auctionID uint64) ([]domain.Bid, error) {
	var data struct {
		BidPlaceds []rawBid `json:"bidPlaceds"`
	}
	err := c.query(ctx, c.auctionURL, bidsQuery, map[string]any{
		"auctionId": fmt.Sprintf("%d", auctionID),
	}, &data)
	if err != nil {
		return nil, err
	}

	bids := make([]domain.Bid, 0, len(data.BidPlaceds))
	for _, r := range data.BidPlaceds {
		amount, ok := new(big.Int).SetString(r.BidAmount, 10)
		if !ok {
			return nil, errors.Errorf("无法解析出价金额: %q", r.BidAmount)
		}
		ts, ok := new(big.Int).SetString(r.BlockTimestamp, 10)
		if !ok {
			return nil, errors.Errorf("无法解析区块时间: %q", r.BlockTimestamp)
		}
		bids = append(bids, domain.Bid{
			Bidder:         domain.NewIdentity(r.Bidder),
			AuctionID:      auctionID,
			Amount:         amount,
			BlockTimestamp: ts.Int64(),
			TxHash:         r.TransactionHash,
		})
	}
	// 索引服务已按时间倒序返回，这里再保证一次排序的稳定性
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].BlockTimestamp > bids[j].BlockTimestamp
	})
	return bids, nil
}

const unsoldQuery = `
query UnsoldNFTs {
  unsoldNFTListeds(first: 1000, orderBy: blockTimestamp, orderDirection: asc) {
    tokenId
    sellingPrice
    blockTimestamp
  }
  unsoldNFTDelisteds(first: 1000) {
    tokenId
  }
}`

type rawListed struct {
	TokenID        string `json:"tokenId"`
	SellingPrice   string `json:"sellingPrice"`
	BlockTimestamp string `json:"blockTimestamp"`
}

// UnsoldNFTs 当前仍可直售的流拍NFT列表
// 上架事件减去下架事件，同一token后发生的事件覆盖先前的
func (c *Client) UnsoldNFTs(ctx context.Context) ([]domain.UnsoldNFT, error) {
	var data struct {
		Listeds   []rawListed `json:"unsoldNFTListeds"`
		Delisteds []struct {
			TokenID string `json:"tokenId"`
		} `json:"unsoldNFTDelisteds"`
	}
	if err := c.query(ctx, c.auctionURL, unsoldQuery, nil, &data); err != nil {
		return nil, err
	}

	delisted := make(map[string]bool, len(data.Delisteds))
	for _, d := range data.Delisteds {
		delisted[d.TokenID] = true
	}

	out := make([]domain.UnsoldNFT, 0, len(data.Listeds))
	seen := make(map[string]bool)
	for _, l := range data.Listeds {
		if delisted[l.TokenID] || seen[l.TokenID] {
			continue
		}
		seen[l.TokenID] = true

		tokenID, ok := new(big.Int).SetString(l.TokenID, 10)
		if !ok {
			return nil, errors.Errorf("无法解析tokenId: %q", l.TokenID)
		}
		price, ok := new(big.Int).SetString(l.SellingPrice, 10)
		if !ok {
			return nil, errors.Errorf("无法解析直售价格: %q", l.SellingPrice)
		}
		ts, _ := new(big.Int).SetString(l.BlockTimestamp, 10)
		var listedAt int64
		if ts != nil {
			listedAt = ts.Int64()
		}
		out = append(out, domain.UnsoldNFT{
			TokenID:      tokenID.Uint64(),
			SellingPrice: price,
			ListedAt:     listedAt,
		})
	}
	return out, nil
}

const transfersQuery = `
query TransfersByAddress($address: Bytes!) {
  incoming: transfers(where: { to: $address }, first: 1000, orderBy: blockTimestamp, orderDirection: desc) {
    tokenId
    from
    to
    blockTimestamp
  }
  outgoing: transfers(where: { from: $address }, first: 1000, orderBy: blockTimestamp, orderDirection: desc) {
    tokenId
    from
    to
    blockTimestamp
  }
}`

// Transfer NFT转移事件
type Transfer struct {
	TokenID        uint64
	From           domain.Identity
	To             domain.Identity
	BlockTimestamp int64
}

type rawTransfer struct {
	TokenID        string `json:"tokenId"`
	From           string `json:"from"`
	To             string `json:"to"`
	BlockTimestamp string `json:"blockTimestamp"`
}

func convertTransfers(raws []rawTransfer) ([]Transfer, error) {
	out := make([]Transfer, 0, len(raws))
	for _, r := range raws {
		tokenID, ok := new(big.Int).SetString(r.TokenID, 10)
		if !ok {
			return nil, errors.Errorf("无法解析tokenId: %q", r.TokenID)
		}
		ts, _ := new(big.Int).SetString(r.BlockTimestamp, 10)
		var blockTS int64
		if ts != nil {
			blockTS = ts.Int64()
		}
		out = append(out, Transfer{
			TokenID:        tokenID.Uint64(),
			From:           domain.NewIdentity(r.From),
			To:             domain.NewIdentity(r.To),
			BlockTimestamp: blockTS,
		})
	}
	return out, nil
}

// Transfers 某地址相关的NFT转入/转出事件
func (c *Client) Transfers(ctx context.Context, identity domain.Identity) (incoming, outgoing []Transfer, err error) {
	var data struct {
		Incoming []rawTransfer `json:"incoming"`
		Outgoing []rawTransfer `json:"outgoing"`
	}
	err = c.query(ctx, c.nftURL, transfersQuery, map[string]any{
		"address": string(identity),
	}, &data)
	if err != nil {
		return nil, nil, err
	}

	if incoming, err = convertTransfers(data.Incoming); err != nil {
		return nil, nil, err
	}
	if outgoing, err = convertTransfers(data.Outgoing); err != nil {
		return nil, nil, err
	}
	return incoming, outgoing, nil
}
