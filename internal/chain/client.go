package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mooveapp/auctiond/internal/bidding"
	"github.com/mooveapp/auctiond/internal/domain"
)

// Client 拍卖合约与 NFT 合约的链上客户端
// 所有读取都是 eth_call，写入需要配置私钥（只读部署时 privateKey 为 nil）
type Client struct {
	eth         *ethclient.Client
	auctionAddr common.Address
	nftAddr     common.Address
	privateKey  *ecdsa.PrivateKey
	chainID     *big.Int
	auctionABI  abi.ABI
	nftABI      abi.ABI
}

// NewClient 创建链上客户端
func NewClient(rpcURL string, chainID int64, auctionAddr, nftAddr string, privateKey *ecdsa.PrivateKey) (*Client, error) {
	// 连接到以太坊节点
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接RPC节点失败: %w", err)
	}

	// 解析ABI
	auctionABI, err := abi.JSON(strings.NewReader(AuctionABI))
	if err != nil {
		return nil, fmt.Errorf("解析拍卖合约ABI失败: %w", err)
	}
	nftABI, err := abi.JSON(strings.NewReader(NFTABI))
	if err != nil {
		return nil, fmt.Errorf("解析NFT合约ABI失败: %w", err)
	}

	return &Client{
		eth:         eth,
		auctionAddr: common.HexToAddress(auctionAddr),
		nftAddr:     common.HexToAddress(nftAddr),
		privateKey:  privateKey,
		chainID:     big.NewInt(chainID),
		auctionABI:  auctionABI,
		nftABI:      nftABI,
	}, nil
}

// CanSubmit 是否具备提交交易的能力（配置了私钥）
func (c *Client) CanSubmit() bool {
	return c.privateKey != nil
}

// OperatorAddress 运营方地址（未配置私钥时返回零地址）
func (c *Client) OperatorAddress() common.Address {
	if c.privateKey == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(c.privateKey.PublicKey)
}

// Close 关闭底层RPC连接
func (c *Client) Close() {
	c.eth.Close()
}

// call 通用的合约view函数调用
func (c *Client) call(ctx context.Context, contractABI abi.ABI, addr common.Address, out interface{}, method string, args ...interface{}) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("打包%s参数失败: %w", method, err)
	}

	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &addr,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("调用%s失败: %w", method, err)
	}

	if err := contractABI.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("解析%s结果失败: %w", method, err)
	}
	return nil
}

// CurrentAuctionID 当前拍卖ID
func (c *Client) CurrentAuctionID(ctx context.Context) (uint64, error) {
	var id *big.Int
	if err := c.call(ctx, c.auctionABI, c.auctionAddr, &id, "s_currentAuctionId"); err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

// rawAuction getAuctionById 返回的链上结构
type rawAuction struct {
	AuctionId           *big.Int
	NftId               *big.Int
	OpeningTimestamp    *big.Int
	ClosingTimestamp    *big.Int
	StartingPrice       *big.Int
	MinimumBidIncrement *big.Int
	IsOpen              bool
}

// AuctionByID 按ID读取拍卖并补齐当前最高出价和胜者
// 历史拍卖的最高出价字段只对当前拍卖有意义，非当前拍卖时置空
func (c *Client) AuctionByID(ctx context.Context, auctionID uint64) (*domain.AuctionSnapshot, error) {
	var raw rawAuction
	if err := c.call(ctx, c.auctionABI, c.auctionAddr, &raw, "getAuctionById", new(big.Int).SetUint64(auctionID)); err != nil {
		return nil, err
	}

	snap := &domain.AuctionSnapshot{
		AuctionID:           raw.AuctionId.Uint64(),
		NFTID:               raw.NftId.Uint64(),
		OpeningTimestamp:    raw.OpeningTimestamp.Int64(),
		ClosingTimestamp:    raw.ClosingTimestamp.Int64(),
		StartingPrice:       raw.StartingPrice,
		MinimumBidIncrement: raw.MinimumBidIncrement,
		IsOpen:              raw.IsOpen,
	}

	currentID, err := c.CurrentAuctionID(ctx)
	if err != nil {
		return nil, err
	}
	if snap.AuctionID == currentID {
		highest, winner, err := c.currentHighestBidAndWinner(ctx)
		if err != nil {
			return nil, err
		}
		snap.CurrentHighestBid = highest
		snap.CurrentWinner = winner
	}
	return snap, nil
}

// CurrentAuction 当前拍卖的完整快照
func (c *Client) CurrentAuction(ctx context.Context) (*domain.AuctionSnapshot, error) {
	currentID, err := c.CurrentAuctionID(ctx)
	if err != nil {
		return nil, err
	}
	return c.AuctionByID(ctx, currentID)
}

func (c *Client) currentHighestBidAndWinner(ctx context.Context) (*big.Int, domain.Identity, error) {
	var highest *big.Int
	if err := c.call(ctx, c.auctionABI, c.auctionAddr, &highest, "s_currentHighestBid"); err != nil {
		return nil, "", err
	}
	var winner common.Address
	if err := c.call(ctx, c.auctionABI, c.auctionAddr, &winner, "s_currentWinner"); err != nil {
		return nil, "", err
	}
	return highest, domain.NewIdentity(winner.Hex()), nil
}

// EscrowCredit 地址在合约内的可提取代管余额（wei）
func (c *Client) EscrowCredit(ctx context.Context, identity domain.Identity) (*big.Int, error) {
	var credit *big.Int
	err := c.call(ctx, c.auctionABI, c.auctionAddr, &credit,
		"getWithdrawableAmountByBidderAddress", common.HexToAddress(string(identity)))
	if err != nil {
		return nil, err
	}
	return credit, nil
}

// LiquidBalance 地址的链上余额（wei）
func (c *Client) LiquidBalance(ctx context.Context, identity domain.Identity) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, common.HexToAddress(string(identity)), nil)
	if err != nil {
		return nil, fmt.Errorf("查询余额失败: %w", err)
	}
	return balance, nil
}

// UnsoldNFTPrice 流拍NFT的直售价格（wei）
func (c *Client) UnsoldNFTPrice(ctx context.Context, tokenID uint64) (*big.Int, error) {
	var price *big.Int
	if err := c.call(ctx, c.auctionABI, c.auctionAddr, &price, "getUnsoldNFTPrice", new(big.Int).SetUint64(tokenID)); err != nil {
		return nil, err
	}
	return price, nil
}

// IsTokenListed NFT是否仍在直售列表中
func (c *Client) IsTokenListed(ctx context.Context, tokenID uint64) (bool, error) {
	var listed bool
	if err := c.call(ctx, c.auctionABI, c.auctionAddr, &listed, "getIsTokenListed", new(big.Int).SetUint64(tokenID)); err != nil {
		return false, err
	}
	return listed, nil
}

// Bidders 当前拍卖的出价人地址列表
func (c *Client) Bidders(ctx context.Context) ([]domain.Identity, error) {
	var addrs []common.Address
	if err := c.call(ctx, c.auctionABI, c.auctionAddr, &addrs, "getListOfBids"); err != nil {
		return nil, err
	}
	out := make([]domain.Identity, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, domain.NewIdentity(a.Hex()))
	}
	return out, nil
}

// OwnedNFTs 地址持有的NFT token ID列表
func (c *Client) OwnedNFTs(ctx context.Context, identity domain.Identity) ([]uint64, error) {
	var ids []*big.Int
	if err := c.call(ctx, c.nftABI, c.nftAddr, &ids, "getOwnedNFTsArray", common.HexToAddress(string(identity))); err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Uint64())
	}
	return out, nil
}

// TokenURI NFT的元数据URI
func (c *Client) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	var uri string
	if err := c.call(ctx, c.nftABI, c.nftAddr, &uri, "tokenURI", new(big.Int).SetUint64(tokenID)); err != nil {
		return "", err
	}
	return uri, nil
}

// submit 打包、签名并发送一笔拍卖合约交易
func (c *Client) submit(ctx context.Context, value *big.Int, method string, args ...interface{}) (common.Hash, error) {
	if c.privateKey == nil {
		return common.Hash{}, fmt.Errorf("未配置私钥，无法提交交易")
	}
	if value == nil {
		value = big.NewInt(0)
	}

	data, err := c.auctionABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("打包%s参数失败: %w", method, err)
	}

	fromAddress := crypto.PubkeyToAddress(c.privateKey.PublicKey)

	// 获取nonce
	nonce, err := c.eth.PendingNonceAt(ctx, fromAddress)
	if err != nil {
		return common.Hash{}, fmt.Errorf("获取nonce失败: %w", err)
	}

	// 获取gas价格
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("获取gas价格失败: %w", err)
	}

	// 估算gas
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  fromAddress,
		To:    &c.auctionAddr,
		Data:  data,
		Value: value,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("估算gas失败: %w", err)
	}

	// 创建并签名交易
	tx := ethtypes.NewTransaction(nonce, c.auctionAddr, value, gasLimit, gasPrice, data)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("签名交易失败: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("发送交易失败: %w", err)
	}
	return signedTx.Hash(), nil
}

// SubmitBid 按提交路径决策结果提交出价
// covered 走 non-payable 入口并把金额作为参数，direct 走 payable 入口附带差额转账
func (c *Client) SubmitBid(ctx context.Context, plan bidding.SubmissionPlan) (common.Hash, error) {
	switch plan.Kind {
	case bidding.PlanCovered:
		return c.submit(ctx, nil, "placeBidNonPayable", plan.Amount)
	case bidding.PlanDirect:
		return c.submit(ctx, plan.Value, "placeBid")
	default:
		return common.Hash{}, fmt.Errorf("未知的提交路径: %s", plan.Kind)
	}
}

// SubmitWithdraw 提交提现交易
func (c *Client) SubmitWithdraw(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return c.submit(ctx, nil, "withdrawBid", amount)
}

// SubmitBuy 按提交路径决策结果提交流拍NFT购买
func (c *Client) SubmitBuy(ctx context.Context, tokenID uint64, plan bidding.SubmissionPlan) (common.Hash, error) {
	id := new(big.Int).SetUint64(tokenID)
	switch plan.Kind {
	case bidding.PlanCovered:
		return c.submit(ctx, nil, "buyUnsoldNFTNonPayable", id)
	case bidding.PlanDirect:
		return c.submit(ctx, plan.Value, "buyUnsoldNFT", id)
	default:
		return common.Hash{}, fmt.Errorf("未知的提交路径: %s", plan.Kind)
	}
}

// StartAuction 管理操作：开启新一轮拍卖
func (c *Client) StartAuction(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, nil, "startAuction")
}

// CloseAuction 管理操作：关闭当前拍卖
func (c *Client) CloseAuction(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, nil, "closeAuction")
}

// WaitForReceipt 轮询等待交易上链，超时由 ctx 控制
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("获取交易回执失败: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
