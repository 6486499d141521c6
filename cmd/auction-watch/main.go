package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
)

var (
	// 样式定义
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	openStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")) // 绿色

	closedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")) // 红色

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")) // 黄色

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// auctionView /api/auction/current 的响应
type auctionView struct {
	Auction struct {
		AuctionID        uint64 `json:"auctionId"`
		NFTID            uint64 `json:"nftId"`
		RemainingSeconds int64  `json:"remainingSeconds"`
		HighestBidText   string `json:"highestBidText"`
		MinimumBidText   string `json:"minimumBidText"`
		CurrentWinner    string `json:"currentWinner"`
		IsOpen           bool   `json:"isOpen"`
	} `json:"auction"`
	Stale bool `json:"stale"`
	Fiat  *struct {
		Currency        string `json:"currency"`
		HighestBidValue string `json:"highestBidValue"`
	} `json:"fiat"`
}

// bidsView /api/auction/:id/bids 的响应
type bidsView struct {
	Bids []struct {
		Bidder         string `json:"bidder"`
		AmountText     string `json:"amountText"`
		BlockTimestamp int64  `json:"blockTimestamp"`
	} `json:"bids"`
}

// unsoldView /api/unsold 的响应
type unsoldView struct {
	NFTs []struct {
		TokenID          uint64 `json:"tokenId"`
		SellingPriceText string `json:"sellingPriceText"`
	} `json:"nfts"`
}

// tickMsg 定时器消息
type tickMsg time.Time

// refreshMsg 一次完整的API拉取结果
type refreshMsg struct {
	auction *auctionView
	bids    *bidsView
	unsold  *unsoldView
	err     error
}

type model struct {
	client  *resty.Client
	baseURL string

	auction *auctionView
	bids    *bidsView
	unsold  *unsoldView
	lastErr error
	updated time.Time
}

func newModel(baseURL string) model {
	return model{
		client:  resty.New().SetTimeout(5 * time.Second),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd 拉取当前拍卖、出价历史和流拍目录
func (m model) refreshCmd() tea.Cmd {
	client, base := m.client, m.baseURL
	return func() tea.Msg {
		var msg refreshMsg

		var auction auctionView
		resp, err := client.R().SetResult(&auction).Get(base + "/api/auction/current")
		if err != nil {
			msg.err = err
			return msg
		}
		if resp.StatusCode() != 200 {
			msg.err = fmt.Errorf("auctiond 返回 %d", resp.StatusCode())
			return msg
		}
		msg.auction = &auction

		var bids bidsView
		if _, err := client.R().SetResult(&bids).
			Get(fmt.Sprintf("%s/api/auction/%d/bids", base, auction.Auction.AuctionID)); err == nil {
			msg.bids = &bids
		}

		var unsold unsoldView
		if _, err := client.R().SetResult(&unsold).Get(base + "/api/unsold"); err == nil {
			msg.unsold = &unsold
		}
		return msg
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd()
		}

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(), tickCmd())

	case refreshMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.auction = msg.auction
		if msg.bids != nil {
			m.bids = msg.bids
		}
		if msg.unsold != nil {
			m.unsold = msg.unsold
		}
		m.updated = time.Now()
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("auction-watch"))
	b.WriteString("\n\n")

	if m.lastErr != nil {
		b.WriteString(closedStyle.Render(fmt.Sprintf("连接失败: %v", m.lastErr)))
		b.WriteString("\n\n" + dimStyle.Render("q 退出 · r 重试"))
		return b.String()
	}
	if m.auction == nil {
		b.WriteString(dimStyle.Render("正在加载…"))
		return b.String()
	}

	a := m.auction.Auction

	status := openStyle.Render("进行中")
	if !a.IsOpen {
		status = closedStyle.Render("已关闭")
	}
	stale := ""
	if m.auction.Stale {
		stale = "  " + staleStyle.Render("[数据滞后]")
	}

	var info strings.Builder
	info.WriteString(titleStyle.Render(fmt.Sprintf("拍卖 #%d · NFT #%d", a.AuctionID, a.NFTID)))
	info.WriteString("  " + status + stale + "\n")
	info.WriteString(fmt.Sprintf("最高出价  %s ETH", a.HighestBidText))
	if m.auction.Fiat != nil {
		info.WriteString(dimStyle.Render(fmt.Sprintf("  (≈ %s %s)", m.auction.Fiat.HighestBidValue, m.auction.Fiat.Currency)))
	}
	info.WriteString("\n")
	info.WriteString(fmt.Sprintf("下一口价  %s ETH\n", a.MinimumBidText))
	if a.CurrentWinner != "" {
		info.WriteString(fmt.Sprintf("领先者    %s\n", shortAddr(a.CurrentWinner)))
	}
	info.WriteString(fmt.Sprintf("剩余时间  %s", formatCountdown(a.RemainingSeconds)))
	b.WriteString(borderStyle.Render(info.String()))
	b.WriteString("\n\n")

	// 出价历史（最近5条）
	if m.bids != nil && len(m.bids.Bids) > 0 {
		var hist strings.Builder
		hist.WriteString(titleStyle.Render("出价历史") + "\n")
		for i, bid := range m.bids.Bids {
			if i >= 5 {
				hist.WriteString(dimStyle.Render(fmt.Sprintf("… 共 %d 条", len(m.bids.Bids))))
				break
			}
			ts := time.Unix(bid.BlockTimestamp, 0).Format("01-02 15:04")
			hist.WriteString(fmt.Sprintf("%s  %-12s  %s ETH\n", dimStyle.Render(ts), shortAddr(bid.Bidder), bid.AmountText))
		}
		b.WriteString(borderStyle.Render(strings.TrimRight(hist.String(), "\n")))
		b.WriteString("\n\n")
	}

	if m.unsold != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf("流拍直售中: %d 件", len(m.unsold.NFTs))))
		b.WriteString("\n")
	}
	if !m.updated.IsZero() {
		b.WriteString(dimStyle.Render("更新于 " + m.updated.Format("15:04:05")))
	}
	b.WriteString("\n" + dimStyle.Render("q 退出 · r 刷新"))
	return b.String()
}

func shortAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func formatCountdown(seconds int64) string {
	if seconds <= 0 {
		return "已结束"
	}
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d时%02d分%02d秒", h, m, s)
	}
	return fmt.Sprintf("%d分%02d秒", m, s)
}

func main() {
	baseURL := flag.String("url", "http://127.0.0.1:8080", "auctiond base URL")
	flag.Parse()

	p := tea.NewProgram(newModel(*baseURL))
	if _, err := p.Run(); err != nil {
		fmt.Println("运行失败:", err)
	}
}
